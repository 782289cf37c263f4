package assets

import _ "embed"

// ActivitiesJSON embeds the built-in activity catalog seed.
//
//go:embed activities.json
var ActivitiesJSON []byte
