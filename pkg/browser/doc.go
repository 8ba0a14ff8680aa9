// Package browser implements the fallback acquisition channel: when the
// API channel is met with an anti-bot challenge, a real headless Chrome
// session renders the user's page, the list responses the page itself
// fetches are intercepted off the wire, and the DOM is scraped as a last
// resort. Output is normalized to the same post records the API channel
// produces.
package browser
