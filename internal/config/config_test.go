package config

import "testing"

func TestLoadAppliesChunkingDefaults(t *testing.T) {
	t.Setenv("MAX_TOKENS_PER_CHUNK", "")
	t.Setenv("OVERLAP_TOKENS", "")
	t.Setenv("TOKENIZER_ENCODING", "")
	t.Setenv("INDEX_BATCH_SIZE", "")

	cfg := Load()
	if cfg.MaxTokensPerChunk != 1500 {
		t.Fatalf("expected default max tokens 1500, got %d", cfg.MaxTokensPerChunk)
	}
	if cfg.OverlapTokens != 150 {
		t.Fatalf("expected default overlap 150, got %d", cfg.OverlapTokens)
	}
	if cfg.TokenizerEncoding != "cl100k_base" {
		t.Fatalf("expected default encoding cl100k_base, got %q", cfg.TokenizerEncoding)
	}
	if cfg.IndexBatchSize != 100 {
		t.Fatalf("expected default batch size 100, got %d", cfg.IndexBatchSize)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults must validate, got %v", err)
	}
}

func TestLoadParsesOverrides(t *testing.T) {
	t.Setenv("MAX_TOKENS_PER_CHUNK", "800")
	t.Setenv("OVERLAP_TOKENS", "80")
	t.Setenv("INDEX_BATCH_SIZE", "32")
	t.Setenv("INCOMING_DIR", "/srv/manuals/incoming")
	t.Setenv("NATS_SUBJECT", "docs.staged.test")

	cfg := Load()
	if cfg.MaxTokensPerChunk != 800 || cfg.OverlapTokens != 80 {
		t.Fatalf("chunking overrides not applied: %+v", cfg)
	}
	if cfg.IndexBatchSize != 32 {
		t.Fatalf("expected batch size 32, got %d", cfg.IndexBatchSize)
	}
	if cfg.IncomingDir != "/srv/manuals/incoming" {
		t.Fatalf("expected incoming dir override, got %q", cfg.IncomingDir)
	}
	if cfg.NATSSubject != "docs.staged.test" {
		t.Fatalf("expected subject override, got %q", cfg.NATSSubject)
	}
}

func TestValidateRejectsBadBudgets(t *testing.T) {
	cfg := Load()

	cfg.OverlapTokens = cfg.MaxTokensPerChunk
	if err := cfg.Validate(); err == nil {
		t.Fatalf("overlap == max tokens must fail validation")
	}

	cfg = Load()
	cfg.MaxTokensPerChunk = 0
	if err := cfg.Validate(); err == nil {
		t.Fatalf("zero max tokens must fail validation")
	}

	cfg = Load()
	cfg.IndexBatchSize = 0
	if err := cfg.Validate(); err == nil {
		t.Fatalf("zero batch size must fail validation")
	}
}

func TestMalformedIntFallsBack(t *testing.T) {
	t.Setenv("MAX_TOKENS_PER_CHUNK", "not-a-number")

	cfg := Load()
	if cfg.MaxTokensPerChunk != 1500 {
		t.Fatalf("malformed int must fall back to default, got %d", cfg.MaxTokensPerChunk)
	}
}
