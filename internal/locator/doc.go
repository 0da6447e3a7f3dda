// Package locator discovers the newest downloadable release archive on the
// vendor's download-listing page.
//
// The page is consumed as raw markup - deliberately without an HTML parser.
// The only contract relied upon is that platform marker images carry an alt
// label and are preceded nearby by an anchor matching the vendor's known
// download URL pattern. The lookback is a small fixed window, so a structural
// change on the page breaks the locator loudly rather than subtly.
package locator
