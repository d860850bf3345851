package bkc

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func validConfig() Config {
	cfg := DefaultConfig
	cfg.Files = []FilePair{{CBCUMIFile: "r1.fastq", ReadFile: "r2.fastq"}}
	return cfg
}

func TestValidateAcceptsDefaults(t *testing.T) {
	cfg := validConfig()
	assert.NoError(t, cfg.Validate())
}

func TestValidateRejectsOutOfRangeLengths(t *testing.T) {
	cfg := validConfig()
	cfg.CBCLen = 5
	assert.Error(t, cfg.Validate())

	cfg = validConfig()
	cfg.LeaderLen = 32
	assert.Error(t, cfg.Validate())
}

func TestValidateRejectsUnknownEnums(t *testing.T) {
	cfg := validConfig()
	cfg.Mode = CountingMode("triple")
	assert.Error(t, cfg.Validate())

	cfg = validConfig()
	cfg.Technology = Technology("nanopore")
	assert.Error(t, cfg.Validate())

	cfg = validConfig()
	cfg.OutputFormat = OutputFormat("tsv")
	assert.Error(t, cfg.Validate())
}

func TestValidateRejectsPairModeWithoutFollower(t *testing.T) {
	cfg := validConfig()
	cfg.Mode = ModePair
	cfg.FollowerLen = 0
	assert.Error(t, cfg.Validate())

	cfg.FollowerLen = 4
	assert.NoError(t, cfg.Validate())
}

func TestValidateRejectsMissingInputs(t *testing.T) {
	cfg := DefaultConfig
	assert.Error(t, cfg.Validate())
}
