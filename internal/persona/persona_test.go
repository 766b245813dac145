package persona

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolve(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Medical", "Medical"},
		{"  real estate ", "Real Estate"},
		{"LEGAL", "Legal"},
		{"", Default},
		{"Aerospace", Default},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, Resolve(tt.in))
		})
	}
}

func TestEveryPersonaSpeaksAsOrganization(t *testing.T) {
	for _, name := range Names() {
		text := For(name)
		assert.NotEmpty(t, text, name)
		assert.Contains(t, text, "'we', 'us', 'our'", name)
	}
}

func TestForbiddenBehaviours(t *testing.T) {
	assert.Contains(t, For("Medical"), "Do NOT provide specific medical diagnoses")
	assert.Contains(t, For("Legal"), "not legal advice")
	assert.Contains(t, For("Finance"), "Do NOT provide financial investment advice")
	assert.Equal(t, For(Default), For("unknown"))
}
