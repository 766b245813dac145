package crm

import (
	"encoding/json"
	"fmt"
)

// EntityType marks customer entries inside default_customers pipeline stages.
const EntityType = "default_customers"

// addToFirstStage appends a customer entity to the first stage of a stages
// document unless one with the same id already sits there. Unknown stage and
// entity fields are preserved.
func addToFirstStage(raw []byte, customerID string) ([]byte, bool, error) {
	var stages []map[string]any
	if len(raw) > 0 && string(raw) != "null" {
		if err := json.Unmarshal(raw, &stages); err != nil {
			return nil, false, fmt.Errorf("failed to decode pipeline stages: %w", err)
		}
	}
	if len(stages) == 0 {
		return nil, false, ErrNoStages
	}

	first := stages[0]
	entities, _ := first["entities"].([]any)
	for _, e := range entities {
		ent, ok := e.(map[string]any)
		if !ok {
			continue
		}
		if fmt.Sprint(ent["entity_id"]) == customerID && ent["entity_type"] == EntityType {
			return raw, false, nil
		}
	}

	first["entities"] = append(entities, map[string]any{
		"entity_id":   entityID(customerID),
		"entity_type": EntityType,
		"sort":        len(entities),
	})

	out, err := json.Marshal(stages)
	if err != nil {
		return nil, false, fmt.Errorf("failed to encode pipeline stages: %w", err)
	}
	return out, true, nil
}

// entityID keeps numeric customer ids numeric in the stages document.
func entityID(id string) any {
	if v, err := json.Number(id).Int64(); err == nil {
		return v
	}
	return id
}
