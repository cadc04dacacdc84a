package extractor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractAccountInfo(t *testing.T) {
	layout := cmbLayout()

	grid := Grid{
		{"招商银行交易流水"},
		{"户名：张三", "", "账号：6214830100123456"},
		cmbHeaderRow,
	}

	name, number, ok := ExtractAccountInfo(grid, &layout)
	require.True(t, ok)
	assert.Equal(t, "张三", name)
	assert.Equal(t, "6214830100123456", number)
}

func TestExtractAccountInfo_Idempotent(t *testing.T) {
	layout := cmbLayout()

	grid := Grid{
		{"户名: 李四"},
		{"账号 6225880198765432"},
	}

	name1, number1, ok1 := ExtractAccountInfo(grid, &layout)
	name2, number2, ok2 := ExtractAccountInfo(grid, &layout)
	require.True(t, ok1)
	require.True(t, ok2)
	assert.Equal(t, name1, name2)
	assert.Equal(t, number1, number2)
}

func TestExtractAccountInfo_PartialIdentityFails(t *testing.T) {
	layout := cmbLayout()

	tests := map[string]Grid{
		"name only":   {{"户名：张三"}, cmbHeaderRow},
		"number only": {{"账号：6214830100123456"}, cmbHeaderRow},
		"neither":     {{"导出时间：2023-02-01"}, cmbHeaderRow},
	}
	for label, grid := range tests {
		t.Run(label, func(t *testing.T) {
			name, number, ok := ExtractAccountInfo(grid, &layout)
			assert.False(t, ok)
			assert.Empty(t, name)
			assert.Empty(t, number)
		})
	}
}

func TestExtractAccountInfo_OutsideScanWindow(t *testing.T) {
	layout := cmbLayout()

	var grid Grid
	for i := 0; i < accountScanRows; i++ {
		grid = append(grid, []string{"填充"})
	}
	grid = append(grid, []string{"户名：张三"}, []string{"账号：6214830100123456"})

	_, _, ok := ExtractAccountInfo(grid, &layout)
	assert.False(t, ok)
}
