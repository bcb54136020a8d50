package provider

// constructors maps provider ids to their constructors. Construction never
// fails; credentials are checked lazily on the first request.
var constructors = map[string]func(Config) Provider{
	VRR:       func(c Config) Provider { return NewVRR(c) },
	KVV:       func(c Config) Provider { return NewKVV(c) },
	HVV:       func(c Config) Provider { return NewHVV(c) },
	Trafiklab: func(c Config) Provider { return NewTrafiklab(c) },
	NTA:       func(c Config) Provider { return NewNTA(c) },
}

// IDs lists the registered provider ids in a stable order.
func IDs() []string {
	return []string{VRR, KVV, HVV, Trafiklab, NTA}
}

// New returns a provider for id, or nil when id is unknown.
func New(id string, cfg Config) Provider {
	ctor, ok := constructors[id]
	if !ok {
		return nil
	}
	return ctor(cfg)
}

// Info describes a provider for selection lists.
type Info struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	Timezone       string `json:"timezone"`
	RequiresAPIKey bool   `json:"requires_api_key"`
}

// Describe returns Info for every registered provider.
func Describe() []Info {
	var out []Info
	for _, id := range IDs() {
		p := New(id, Config{})
		out = append(out, Info{ID: id, Name: p.Name(), Timezone: p.Timezone(), RequiresAPIKey: p.RequiresAPIKey()})
	}
	return out
}
