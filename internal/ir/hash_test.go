package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRelationDigestOrderIndependent(t *testing.T) {
	domains := []Domain{DomainInteger, DomainString}
	k1 := TupleKey([]Value{Integer(1), String("Ann")})
	k2 := TupleKey([]Value{Integer(2), String("Bob")})

	a := RelationDigest(domains, []string{k1, k2})
	b := RelationDigest(domains, []string{k2, k1})

	assert.Equal(t, a, b)
	assert.Len(t, a, 64)
}

func TestRelationDigestSensitivity(t *testing.T) {
	k1 := TupleKey([]Value{Integer(1)})
	k2 := TupleKey([]Value{Integer(2)})

	base := RelationDigest([]Domain{DomainInteger}, []string{k1})
	assert.NotEqual(t, base, RelationDigest([]Domain{DomainInteger}, []string{k1, k2}))
	assert.NotEqual(t, base, RelationDigest([]Domain{DomainUnsigned}, []string{k1}))
	assert.NotEqual(t, base, RelationDigest([]Domain{DomainInteger}, nil))
}

func TestRelationDigestDoesNotMutateInput(t *testing.T) {
	keys := []string{"b", "a"}
	RelationDigest(nil, keys)
	assert.Equal(t, []string{"b", "a"}, keys)
}

func TestSchemaDigest(t *testing.T) {
	a := SchemaDigest([]Name{"id", "name"}, []Domain{DomainInteger, DomainString})
	b := SchemaDigest([]Name{"id", "name"}, []Domain{DomainInteger, DomainString})
	c := SchemaDigest([]Name{"name", "id"}, []Domain{DomainString, DomainInteger})
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
}
