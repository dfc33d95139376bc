// Package appid loads the agentcfg app identity, falling back to the copy
// embedded in the binary when no .fulmen/app.yaml is found.
package appid

import (
	"context"
	"errors"
	"strings"

	"github.com/fulmenhq/gofulmen/appidentity"

	appidentityassets "github.com/agentcfg/agentcfg/internal/assets/appidentity"
)

func init() {
	// FULMEN_APP_IDENTITY_PATH and explicit paths still win over this.
	_ = appidentity.RegisterEmbeddedIdentityYAML(appidentityassets.YAML)
}

// Get returns the process identity.
func Get(ctx context.Context) (*appidentity.Identity, error) {
	return appidentity.Get(ctx)
}

// EnvName prefixes key with the identity's env prefix, adding the separator
// when the prefix lacks one.
func EnvName(identity *appidentity.Identity, key string) string {
	if identity == nil {
		return key
	}
	prefix := identity.EnvPrefix
	if prefix != "" && !strings.HasSuffix(prefix, "_") {
		prefix += "_"
	}
	return prefix + key
}

// Validate reports the first identity field agentcfg depends on that is empty.
func Validate(identity *appidentity.Identity) error {
	switch {
	case identity == nil:
		return errors.New("app identity not loaded")
	case identity.BinaryName == "":
		return errors.New("app identity missing binary name")
	case identity.EnvPrefix == "":
		return errors.New("app identity missing env prefix")
	case identity.ConfigName == "":
		return errors.New("app identity missing config name")
	}
	return nil
}
