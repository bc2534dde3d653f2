package memstore

import (
	"context"
	"encoding/json"
	"maps"
	"sort"

	"NewsCollector/internal/domain"
)

func (s *Store) GetCollectorConfig(context.Context) (json.RawMessage, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.st.collectorConfig == nil {
		return nil, false, nil
	}
	return append(json.RawMessage(nil), s.st.collectorConfig...), true, nil
}

func (s *Store) SetCollectorConfig(_ context.Context, raw json.RawMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.st.collectorConfig = append(json.RawMessage(nil), raw...)
	return nil
}

func (s *Store) GetNewsSourceConfigs(context.Context) (map[string]domain.SourceConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return maps.Clone(s.st.sourceConfigs), nil
}

func (s *Store) SetNewsSourceConfig(_ context.Context, source string, cfg domain.SourceConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.st.sourceConfigs[source] = cfg
	return nil
}

func (s *Store) ReplaceNewsSourceConfigs(_ context.Context, cfgs map[string]domain.SourceConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.st.sourceConfigs = maps.Clone(cfgs)
	if s.st.sourceConfigs == nil {
		s.st.sourceConfigs = map[string]domain.SourceConfig{}
	}
	return nil
}

func (s *Store) RemoveNewsSourceConfig(_ context.Context, source string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.st.sourceConfigs, source)
	return nil
}

func (s *Store) GetPublisherConfig(context.Context) (json.RawMessage, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.st.publisherConfig == nil {
		return nil, false, nil
	}
	return append(json.RawMessage(nil), s.st.publisherConfig...), true, nil
}

func (s *Store) SetPublisherConfig(_ context.Context, raw json.RawMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.st.publisherConfig = append(json.RawMessage(nil), raw...)
	return nil
}

func (s *Store) GetOffset(context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.offset, nil
}

func (s *Store) SetOffset(_ context.Context, offset int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.st.offset = offset
	return nil
}

func (s *Store) AddRecord(_ context.Context, record domain.HeartbeatRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.st.heartbeats[record.Group] = append(s.st.heartbeats[record.Group], record)
	return nil
}

func (s *Store) LeastAfter(_ context.Context, group string, cutoff int64) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var fresh []domain.HeartbeatRecord
	for _, r := range s.st.heartbeats[group] {
		if r.Timestamp > cutoff {
			fresh = append(fresh, r)
		}
	}
	if len(fresh) == 0 {
		return "", false, nil
	}
	sort.Slice(fresh, func(i, j int) bool {
		if fresh[i].Order != fresh[j].Order {
			return fresh[i].Order < fresh[j].Order
		}
		return fresh[i].InstanceID < fresh[j].InstanceID
	})
	return fresh[0].InstanceID, true, nil
}

func (s *Store) PruneBefore(_ context.Context, group string, cutoff int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.st.heartbeats[group][:0]
	for _, r := range s.st.heartbeats[group] {
		if r.Timestamp >= cutoff {
			kept = append(kept, r)
		}
	}
	s.st.heartbeats[group] = kept
	return nil
}
