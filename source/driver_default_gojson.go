package source

import (
	"github.com/reoring/attrmap"
	drvgojson "github.com/reoring/attrmap/source/gojson"
)

// init in a separate package to avoid import cycle in root. This sets go-json as default driver.
func init() { attrmap.SetJSONDriver(drvgojson.Driver()) }
