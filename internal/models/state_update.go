package models

import "encoding/json"

// StateUpdate carries the accepted sub-trees of one telemetry frame exactly
// as received. A nil field means the frame did not include that sub-tree.
type StateUpdate struct {
	Equipment json.RawMessage
	Motion    json.RawMessage
	Safety    json.RawMessage
}

// Keys returns the wire names of the sub-trees present in the update.
func (u StateUpdate) Keys() []string {
	keys := make([]string, 0, 3)
	if u.Equipment != nil {
		keys = append(keys, SubtreeEquipment)
	}
	if u.Motion != nil {
		keys = append(keys, SubtreeMotion)
	}
	if u.Safety != nil {
		keys = append(keys, SubtreeSafety)
	}
	return keys
}

// Empty reports whether the update carries no sub-tree.
func (u StateUpdate) Empty() bool {
	return u.Equipment == nil && u.Motion == nil && u.Safety == nil
}
