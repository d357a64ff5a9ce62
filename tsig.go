package cascade

import "fmt"

// TsigKey is one configured TSIG key, in the shape the teacher's
// TsigDetails/KeyConf.Tsig (config.go, tsig_utils.go) stores them:
// name, algorithm, base64 secret, ready to hand to dns.Transfer or
// dns.Client as a map[string]string keyed by key name.
type TsigKey struct {
	Name      string
	Algorithm string
	Secret    string
}

// TsigStore holds a set of TSIG keys, built by NewTsigStore from a key
// list such as config.go's Config.Keys.Tsig. Nothing in this package
// creates one or loads rows of the tsig_keys table (persistence.go) into
// it, and the Engine holds none. It replaces the teacher's package-level
// Globals.TsigKeys map; the remaining process-wide globals are the CLI
// flags and API client in global.go.
type TsigStore struct {
	keys map[string]TsigKey
}

func NewTsigStore(keys []TsigKey) *TsigStore {
	s := &TsigStore{keys: make(map[string]TsigKey, len(keys))}
	for _, k := range keys {
		s.keys[k.Name] = k
	}
	return s
}

// Secrets returns the map[name]secret shape github.com/miekg/dns expects
// for dns.Transfer.TsigSecret / dns.Client.TsigSecret, mirroring
// ParseTsigKeys's tsigSecrets return value (tsig_utils.go).
func (s *TsigStore) Secrets() map[string]string {
	out := make(map[string]string, len(s.keys))
	for name, k := range s.keys {
		out[name] = k.Secret
	}
	return out
}

func (s *TsigStore) Lookup(name string) (TsigKey, error) {
	k, ok := s.keys[name]
	if !ok {
		return TsigKey{}, fmt.Errorf("cascade: tsig: unknown key %q", name)
	}
	return k, nil
}
