package compose

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// dataloggerService is the compose service that reads the meter.
const dataloggerService = "dsmr"

// PatchCompose rewrites the compose definition for the connection method.
// For MethodUSB the datalogger service gets a devices mapping exposing
// the passed-through node; for MethodTCP any devices mapping left over
// from the template is dropped, since no local device exists.
func PatchCompose(data []byte, s Settings) ([]byte, error) {
	var doc map[string]any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing compose definition: %w", err)
	}

	services, ok := doc["services"].(map[string]any)
	if !ok {
		return nil, fmt.Errorf("compose definition has no services section")
	}
	service, ok := services[dataloggerService].(map[string]any)
	if !ok {
		return nil, fmt.Errorf("compose definition has no %q service", dataloggerService)
	}

	switch s.Method {
	case MethodUSB:
		service["devices"] = []any{fmt.Sprintf("%s:%s", s.DevicePath, s.DevicePath)}
	case MethodTCP:
		delete(service, "devices")
	}

	return yaml.Marshal(doc)
}
