// Package directory provides the Session Directory read model shown in the
// sidebar.
//
// # Overview
//
// The Directory lists the contexts known to the backend and turns sidebar
// gestures into Event Channel requests. It never touches a transcript:
//
//	dir := directory.New(gw, ch, logger)
//	dir.Refresh()
//	dir.Select("ctx-1")   // publishes SessionSwitchRequested
//	dir.RequestNewSession()
//
// # States
//
// A Listing is Loading until the first refresh settles, then Loaded or Error.
// Later refreshes keep the previous list visible with Refreshing set. Only
// the most recently started refresh may update the listing.
package directory
