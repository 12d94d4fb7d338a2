package sessionreplay

import (
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/pkg/errors"
)

// rawOptions mirrors the JavaScript-style configuration object accepted by
// OptionsFromMap. Field names are the camelCase keys of that object.
type rawOptions struct {
	ServerURL               string   `mapstructure:"serverURL"`
	EnableIPCapture         *bool    `mapstructure:"enableIPCapture"`
	UploadIntervalMs        *float64 `mapstructure:"uploadIntervalMs"`
	ViewScanIntervalSeconds *float64 `mapstructure:"viewScanIntervalSeconds"`
	LogLevel                string   `mapstructure:"logLevel"`
	Network                 *struct {
		IsEnabled *bool `mapstructure:"isEnabled"`
	} `mapstructure:"network"`
	Console *struct {
		IsEnabled                    any  `mapstructure:"isEnabled"`
		ShouldAggregateConsoleErrors bool `mapstructure:"shouldAggregateConsoleErrors"`
	} `mapstructure:"console"`
	RedactionTags              []string `mapstructure:"redactionTags"`
	EnablePersistence          bool     `mapstructure:"enablePersistence"`
	ConnectionType             string   `mapstructure:"connectionType"`
	DangerouslySkipExpoGoCheck bool     `mapstructure:"dangerouslySkipExpoGoCheck"`
}

// OptionsFromMap decodes a configuration object, such as one parsed from
// JSON, into Options. Keys use the camelCase names of the configuration
// object (serverURL, uploadIntervalMs, console.isEnabled, ...). Unknown keys
// and values of the wrong type are rejected. Sanitizers cannot be expressed in
// a map and must be set on the returned Options.
func OptionsFromMap(m map[string]any) (*Options, error) {
	raw := rawOptions{}
	if err := decodeStrict(m, &raw); err != nil {
		return nil, errors.Wrap(err, "sessionreplay: invalid options")
	}

	o := &Options{
		ServerURL:                  raw.ServerURL,
		EnableIPCapture:            raw.EnableIPCapture,
		LogLevel:                   raw.LogLevel,
		RedactionTags:              raw.RedactionTags,
		EnablePersistence:          raw.EnablePersistence,
		ConnectionType:             ConnectionType(raw.ConnectionType),
		DangerouslySkipExpoGoCheck: raw.DangerouslySkipExpoGoCheck,
	}
	if raw.UploadIntervalMs != nil {
		o.UploadInterval = time.Duration(*raw.UploadIntervalMs * float64(time.Millisecond))
	}
	if raw.ViewScanIntervalSeconds != nil {
		o.ViewScanInterval = time.Duration(*raw.ViewScanIntervalSeconds * float64(time.Second))
	}
	if raw.Network != nil {
		o.Network.IsEnabled = raw.Network.IsEnabled
	}
	if raw.Console != nil {
		o.Console.ShouldAggregateConsoleErrors = raw.Console.ShouldAggregateConsoleErrors
		switch v := raw.Console.IsEnabled.(type) {
		case nil:
		case bool:
			o.Console.IsEnabled = Bool(v)
		case map[string]any:
			levels := &ConsoleLevels{}
			if err := decodeStrict(v, levels); err != nil {
				return nil, errors.Wrap(err, "sessionreplay: invalid options: console.isEnabled")
			}
			o.Console.Levels = levels
		default:
			return nil, errors.Errorf("sessionreplay: invalid options: console.isEnabled must be a boolean or an object of levels, got %T", v)
		}
	}
	return o, nil
}

func decodeStrict(in, out any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		ErrorUnused: true,
		Result:      out,
	})
	if err != nil {
		return err
	}
	return decoder.Decode(in)
}
