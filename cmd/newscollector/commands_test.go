package main

import (
	"testing"

	"NewsCollector/internal/config"
)

func TestApplyRole(t *testing.T) {
	t.Parallel()

	cases := []struct {
		role               string
		collector, publish bool
		wantErr            bool
	}{
		{role: roleAll, collector: true, publish: false},
		{role: roleCollector, collector: true, publish: false},
		{role: rolePublisher, collector: false, publish: true},
		{role: "gardener", wantErr: true},
	}
	for _, tc := range cases {
		cfg := config.Config{Collector: config.CollectorConfig{Enabled: true}}
		err := applyRole(&cfg, tc.role)
		if (err != nil) != tc.wantErr {
			t.Fatalf("applyRole(%q) error = %v", tc.role, err)
		}
		if tc.wantErr {
			continue
		}
		if cfg.Collector.Enabled != tc.collector || cfg.Publisher.Enabled != tc.publish {
			t.Fatalf("applyRole(%q) = collector %v publisher %v", tc.role, cfg.Collector.Enabled, cfg.Publisher.Enabled)
		}
	}
}

func TestRootCommandWiring(t *testing.T) {
	t.Parallel()

	root := newRootCommand()
	for _, name := range []string{"serve", "migrate"} {
		cmd, _, err := root.Find([]string{name})
		if err != nil || cmd.Name() != name {
			t.Fatalf("command %s not registered: %v", name, err)
		}
	}
	serve, _, _ := root.Find([]string{"serve"})
	if f := serve.Flags().Lookup("role"); f == nil || f.DefValue != roleAll {
		t.Fatalf("serve --role flag missing or wrong default")
	}
	if root.PersistentFlags().Lookup("config") == nil {
		t.Fatal("--config flag missing")
	}
}
