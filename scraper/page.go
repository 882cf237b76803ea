// Package scraper implements the navigation and extraction engine: element
// waits, render-stability detection, snapshot extraction, the per-task
// navigation state machine, and the run orchestrators that drive them across
// a task list.
package scraper

// Page is the page-automation capability the engine drives. *browser.Session
// implements it; tests substitute scripted fakes. Locators may be CSS or
// XPath wherever they are only queried in the live page; locators resolved
// inside snapshots must be CSS.
type Page interface {
	Navigate(url string) error
	Count(locator string) (int, error)
	Text(locator string) (string, error)
	Texts(locator string) ([]string, error)
	Attr(locator, name string) (string, error)
	Attrs(locator, name string) ([]string, error)
	PageHTML() (string, error)
	Click(locator string) error
	Clear(locator string) error
	Type(locator, text string) error
}
