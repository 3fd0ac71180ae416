package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/admbtski/miglee-sub001/internal/domain"
)

// PolicyRule is one layer of membership policy. Nil fields inherit from the
// layer below.
type PolicyRule struct {
	BlockReapplyAfterReject *bool `yaml:"block_reapply_after_reject"`
}

// PolicyDocument is the on-disk shape of the membership policy file:
//
//	defaults:
//	  block_reapply_after_reject: false
//	kinds:
//	  EVENT:
//	    block_reapply_after_reject: true
//	groups:
//	  0190f5a2-...:
//	    block_reapply_after_reject: false
type PolicyDocument struct {
	Defaults PolicyRule            `yaml:"defaults"`
	Kinds    map[string]PolicyRule `yaml:"kinds"`
	Groups   map[string]PolicyRule `yaml:"groups"`
}

// MembershipPolicy resolves policy per group: group override, then group
// flavor, then defaults.
type MembershipPolicy struct {
	doc PolicyDocument
}

var _ domain.ReapplyPolicy = (*MembershipPolicy)(nil)

// LoadPolicy reads a policy file. An empty path yields the permissive default.
func LoadPolicy(path string) (*MembershipPolicy, error) {
	if path == "" {
		return &MembershipPolicy{}, nil
	}
	data, err := os.ReadFile(path) //nolint:gosec // path is operator-controlled
	if err != nil {
		return nil, fmt.Errorf("read policy file: %w", err)
	}
	p, err := ParsePolicy(data)
	if err != nil {
		return nil, fmt.Errorf("policy file %s: %w", path, err)
	}
	return p, nil
}

// ParsePolicy parses a policy document. Unknown keys and flavors are rejected.
func ParsePolicy(data []byte) (*MembershipPolicy, error) {
	var doc PolicyDocument
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse policy: %w", err)
	}

	kinds := make(map[string]PolicyRule, len(doc.Kinds))
	for k, rule := range doc.Kinds {
		flavor := domain.GroupFlavor(strings.ToUpper(k))
		if flavor != domain.FlavorIntent && flavor != domain.FlavorEvent {
			return nil, fmt.Errorf("unknown group kind %q", k)
		}
		kinds[string(flavor)] = rule
	}
	doc.Kinds = kinds
	return &MembershipPolicy{doc: doc}, nil
}

// BlocksReapplyAfterReject implements domain.ReapplyPolicy.
func (p *MembershipPolicy) BlocksReapplyAfterReject(g domain.GroupKind) bool {
	if rule, ok := p.doc.Groups[g.GroupID()]; ok && rule.BlockReapplyAfterReject != nil {
		return *rule.BlockReapplyAfterReject
	}
	if rule, ok := p.doc.Kinds[string(g.Flavor())]; ok && rule.BlockReapplyAfterReject != nil {
		return *rule.BlockReapplyAfterReject
	}
	if p.doc.Defaults.BlockReapplyAfterReject != nil {
		return *p.doc.Defaults.BlockReapplyAfterReject
	}
	return false
}
