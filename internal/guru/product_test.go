package guru

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolveTargetName(t *testing.T) {
	tests := []struct {
		name     string
		incoming string
		guruID   string
		want     string
	}{
		{"точное имя", "Gold 10x", "p1", "Gold 10x"},
		{"верхний регистр", "GOLD 10X PRO", "p1", "Gold 10x"},
		{"смешанный регистр с суффиксом", "gold 10X - assinatura anual", "p1", "Gold 10x"},
		{"gold без 10x остается как есть", "Gold Trading", "p1", "Gold Trading"},
		{"чужое имя как есть", "Other", "p2", "Other"},
		{"без имени заглушка", "", "abc-123", "Produto abc-123"},
		{"пробелы как пустое имя", "   ", "abc-123", "Produto abc-123"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ResolveTargetName(tt.incoming, tt.guruID))
		})
	}
}
