// Package core provides the upload pipeline and session state for sheetflow.
//
// The package is independent of any UI or transport layer. Web handlers and
// the CLI both drive it through [Service].
//
// # Pipeline
//
// One uploaded spreadsheet goes through three pluggable stages:
//
//  1. [Extractor] turns the staged file into tables, in extraction order
//  2. [Validator] checks the tables and returns a [ValidationReport]
//  3. [Transformer] produces the final tables
//
// [Pipeline.Run] stages the payload in a temp file, labels the extracted
// tables "Table 1".."Table N" and keeps those labels fixed through the later
// stages. The temp file is removed on every exit path. A failure or panic in
// any stage aborts the run with a [*StageError]; nothing partial is returned.
//
// # Sessions
//
// Each browser session owns one [UploadSession]. [Service.Upload] resets it,
// runs the pipeline and publishes the [TableSet] only on success. Sink actions
// ([Service.LoadWarehouse], [Service.SendEmail], [Service.Charts]) read the
// published set and never change the session. Idle sessions are removed by
// [Service.StartSessionJanitor].
//
// # Error Handling
//
// Technical errors are mapped to user-friendly messages using [MapError].
// Codes are grouped by area: CRED (credentials), FILE, PIPE (stages),
// SES (sessions), WH (warehouse), MAIL, UPL (upload flow) and RATE.
package core
