package appidentityassets

import _ "embed"

// YAML is the embedded app identity, used when no external `.fulmen/app.yaml`
// can be found (standalone binary).
//
//go:embed app.yaml
var YAML []byte
