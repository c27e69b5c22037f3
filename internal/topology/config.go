package topology

import (
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
)

// Config describes a set of emitters, the proxy links between them and the trackers
// subscribed to them.
type Config struct {
	LogLevel string          `json:"log_level" yaml:"log_level" toml:"log_level" validate:"omitempty,oneof=debug info warn error"`
	Emitters []EmitterConfig `json:"emitters" yaml:"emitters" toml:"emitters" validate:"required,min=1,dive"`
	Trackers []TrackerConfig `json:"trackers" yaml:"trackers" toml:"trackers" validate:"dive"`
}

type EmitterConfig struct {
	Name      string `json:"name" yaml:"name" toml:"name" validate:"required"`
	Namespace string `json:"namespace" yaml:"namespace" toml:"namespace"`
	// Proxies names the emitters whose events this one re-emits.
	Proxies []string `json:"proxies" yaml:"proxies" toml:"proxies" validate:"dive,required"`
}

type TrackerConfig struct {
	Name string `json:"name" yaml:"name" toml:"name" validate:"required"`
	// Record makes the tracker's subscriptions a recording that can be rolled back.
	Record        bool                 `json:"record" yaml:"record" toml:"record"`
	Subscriptions []SubscriptionConfig `json:"subscriptions" yaml:"subscriptions" toml:"subscriptions" validate:"dive"`
}

type SubscriptionConfig struct {
	Emitter string `json:"emitter" yaml:"emitter" toml:"emitter" validate:"required"`
	Event   string `json:"event" yaml:"event" toml:"event" validate:"required"`
}

var validate = validator.New()

// Validate checks the struct constraints and the references between entries.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(err, "invalid topology")
	}

	emitters := make(map[string]struct{}, len(c.Emitters))
	for _, e := range c.Emitters {
		if _, dup := emitters[e.Name]; dup {
			return errors.Errorf("invalid topology: duplicate emitter %q", e.Name)
		}
		emitters[e.Name] = struct{}{}
	}

	for _, e := range c.Emitters {
		for _, source := range e.Proxies {
			if source == e.Name {
				return errors.Errorf("invalid topology: emitter %q proxies itself", e.Name)
			}
			if _, found := emitters[source]; !found {
				return errors.Errorf("invalid topology: emitter %q proxies unknown emitter %q", e.Name, source)
			}
		}
	}

	trackers := make(map[string]struct{}, len(c.Trackers))
	for _, t := range c.Trackers {
		if _, dup := trackers[t.Name]; dup {
			return errors.Errorf("invalid topology: duplicate tracker %q", t.Name)
		}
		trackers[t.Name] = struct{}{}

		for _, s := range t.Subscriptions {
			if _, found := emitters[s.Emitter]; !found {
				return errors.Errorf("invalid topology: tracker %q listens to unknown emitter %q", t.Name, s.Emitter)
			}
		}
	}

	return nil
}
