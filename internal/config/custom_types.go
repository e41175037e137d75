// Package config handles application configuration.
package config

import (
	"fmt"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// FlexBool is a boolean type that can be unmarshalled from a boolean, a
// string, or a number.
type FlexBool bool

// UnmarshalYAML implements the yaml.Unmarshaler interface for FlexBool.
func (fb *FlexBool) UnmarshalYAML(value *yaml.Node) error {
	switch value.Tag {
	case "!!bool":
		var b bool
		if err := value.Decode(&b); err != nil {
			return err
		}
		*fb = FlexBool(b)
	case "!!str":
		b, err := strconv.ParseBool(value.Value)
		if err != nil {
			return fmt.Errorf("cannot unmarshal string %q into FlexBool", value.Value)
		}
		*fb = FlexBool(b)
	case "!!int":
		i, err := strconv.Atoi(value.Value)
		if err != nil {
			return err
		}
		*fb = FlexBool(i != 0)
	case "!!float":
		f, err := strconv.ParseFloat(value.Value, 64)
		if err != nil {
			return err
		}
		*fb = FlexBool(f != 0)
	default:
		return fmt.Errorf("cannot unmarshal %s into FlexBool", value.Tag)
	}
	return nil
}

// Duration is a time.Duration that can be unmarshalled from a Go
// duration string ("90s", "2m") or a number of seconds.
type Duration time.Duration

// UnmarshalYAML implements the yaml.Unmarshaler interface for Duration.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	switch value.Tag {
	case "!!str":
		parsed, err := time.ParseDuration(value.Value)
		if err != nil {
			return fmt.Errorf("cannot unmarshal string %q into Duration", value.Value)
		}
		*d = Duration(parsed)
	case "!!int":
		secs, err := strconv.Atoi(value.Value)
		if err != nil {
			return err
		}
		*d = Duration(time.Duration(secs) * time.Second)
	case "!!float":
		secs, err := strconv.ParseFloat(value.Value, 64)
		if err != nil {
			return err
		}
		*d = Duration(time.Duration(secs * float64(time.Second)))
	default:
		return fmt.Errorf("cannot unmarshal %s into Duration", value.Tag)
	}
	return nil
}

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}
