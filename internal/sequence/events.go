package sequence

import "bridgewalk/internal/bridge"

// multiEvents fans sequence events out to several receivers.
type multiEvents []Events

func (m multiEvents) OnBridgeLoaded(index int, cfg bridge.Config) {
	for _, e := range m {
		e.OnBridgeLoaded(index, cfg)
	}
}

func (m multiEvents) OnSequenceCompleted() {
	for _, e := range m {
		e.OnSequenceCompleted()
	}
}

// CombineEvents bundles receivers into one Events value. Nil entries are
// skipped.
func CombineEvents(receivers ...Events) Events {
	var combined multiEvents
	for _, r := range receivers {
		if r != nil {
			combined = append(combined, r)
		}
	}
	return combined
}
