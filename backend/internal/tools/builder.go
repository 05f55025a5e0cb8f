package tools

import (
	"thoth/backend/internal/memory"
	"thoth/backend/internal/storage"
	"thoth/backend/internal/twilio"
)

// BuildRegistry assembles the full tool catalog: file tools backed by
// the database, the Twilio SMS tool, and the weather forecast tool.
// Registration errors are schema mistakes and abort startup.
func BuildRegistry(store *storage.Store, twilioClient *twilio.Client, backend memory.Backend) (*Registry, error) {
	registry := NewRegistry()

	var defs []Definition
	defs = append(defs, NewFileTools(store).Definitions()...)
	defs = append(defs, NewSMSTools(twilioClient, store, backend).Definitions()...)
	defs = append(defs, NewWeatherTools().Definitions()...)

	for _, def := range defs {
		if err := registry.Register(def); err != nil {
			return nil, err
		}
	}
	return registry, nil
}
