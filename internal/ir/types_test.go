package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestParseDomainRoundTrip(t *testing.T) {
	for _, d := range Domains() {
		t.Run(d.String(), func(t *testing.T) {
			parsed, err := ParseDomain(d.String())
			require.NoError(t, err)
			assert.Equal(t, d, parsed)
		})
	}
}

func TestParseDomainUnknown(t *testing.T) {
	_, err := ParseDomain("decimal")
	require.Error(t, err)
	assert.True(t, IsInvalidValue(err))
}

func TestDomainYAMLText(t *testing.T) {
	var doc struct {
		Domain Domain `yaml:"domain"`
	}
	require.NoError(t, yaml.Unmarshal([]byte("domain: char\n"), &doc))
	assert.Equal(t, DomainChar, doc.Domain)

	err := yaml.Unmarshal([]byte("domain: money\n"), &doc)
	require.Error(t, err)
}
