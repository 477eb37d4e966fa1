package pnu

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncode(t *testing.T) {
	tests := []struct {
		name  string
		code  string
		jibun string
		want  string
	}{
		{"main and sub", "5011010300", "50-11", "5011010300" + "0" + "0050" + "0011"},
		{"main only", "5011010300", "195", "5011010300" + "0" + "0195" + "0000"},
		{"mountain lot", "5011010300", "산50-11", "5011010300" + "1" + "0050" + "0011"},
		{"noise stripped", "5011010300", " 290-34대 ", "5011010300" + "0" + "0290" + "0034"},
		{"fullwidth digits", "5011010300", "５０-１１", "5011010300" + "0" + "0050" + "0011"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Encode(tt.code, tt.jibun)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Len(t, got, 19)
		})
	}
}

func TestEncode_Invalid(t *testing.T) {
	_, err := Encode("", "50-11")
	assert.Error(t, err)

	_, err = Encode("50110", "50-11") // too short
	assert.Error(t, err)

	_, err = Encode("5011010300", "")
	assert.Error(t, err)
}

func TestDecode(t *testing.T) {
	p := Decode("5011010300" + "1" + "0050" + "0011")
	assert.Equal(t, "50110", p.RegionCode)
	assert.Equal(t, "10300", p.SubDistrictCode)
	assert.Equal(t, PlotMountain, p.PlotType)
	assert.Equal(t, "0050", p.MainLot)
	assert.Equal(t, "0011", p.SubLot)
	assert.Equal(t, "5011010300", p.Code10())
}

func TestDecode_Truncated(t *testing.T) {
	p := Decode("5011010300" + "0" + "0195")
	assert.Equal(t, "0195", p.MainLot)
	assert.Equal(t, "0000", p.SubLot)

	p = Decode("50110")
	assert.Equal(t, "50110", p.RegionCode)
	assert.Equal(t, "", p.SubDistrictCode)
	assert.Equal(t, PlotNormal, p.PlotType)
	assert.Equal(t, "0000", p.MainLot)
}

func TestRoundTrip(t *testing.T) {
	tests := []struct {
		jibun    string
		plotType string
	}{
		{"50-11", PlotNormal},
		{"195", PlotNormal},
		{"산50-11", PlotMountain},
		{"산7", PlotMountain},
	}
	for _, tt := range tests {
		t.Run(tt.jibun, func(t *testing.T) {
			encoded, err := Encode("5011010300", tt.jibun)
			require.NoError(t, err)

			p := Decode(encoded)
			assert.Equal(t, tt.plotType, p.PlotType)
			assert.Equal(t, tt.jibun, p.JibunString())
		})
	}
}

func TestJibunString_ZeroSubOmitted(t *testing.T) {
	p := Parts{PlotType: PlotNormal, MainLot: "0195", SubLot: "0000"}
	assert.Equal(t, "195", p.JibunString())
}

func TestCategoryFromJibun(t *testing.T) {
	assert.Equal(t, "대", CategoryFromJibun("290-34대"))
	assert.Equal(t, "전", CategoryFromJibun("1012전"))
	assert.Equal(t, "대", CategoryFromJibun("50-11"))
	assert.Equal(t, "대", CategoryFromJibun(""))
}
