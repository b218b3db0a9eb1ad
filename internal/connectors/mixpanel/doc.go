// Package mixpanel uploads transformed day files to Mixpanel's ingestion API.
//
// Events go to /import (service account auth, strict validation), user
// profiles to /engage and group profiles to /groups. Records are batched and
// batches are sent by a bounded pool of workers.
package mixpanel
