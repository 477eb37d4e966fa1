// Package pnu encodes and decodes the 19-character parcel numbering unit:
// region(5) + sub-district(5) + plot-type flag(1) + main lot(4) + sub lot(4).
package pnu

import (
	"strings"

	"github.com/rotisserie/eris"
	"golang.org/x/text/width"
)

// Plot-type flag values.
const (
	PlotNormal   = "0"
	PlotMountain = "1" // 산 (mountain/forest lot)
)

const mountainMarker = "산"

// Parts is the decoded form of a PNU.
type Parts struct {
	RegionCode      string `json:"region_code"`       // 시군구, offsets 0:5
	SubDistrictCode string `json:"sub_district_code"` // 법정동, offsets 5:10
	PlotType        string `json:"plot_type"`         // offset 10
	MainLot         string `json:"main_lot"`          // offsets 11:15, zero-padded
	SubLot          string `json:"sub_lot"`           // offsets 15:19, zero-padded
}

// Encode builds a PNU from the 10-character region+sub-district code and a
// jibun lot string like "50-11", "195-1" or "산50-11". Full-width digits from
// upstream address payloads are folded to ASCII before parsing.
func Encode(code10, jibun string) (string, error) {
	code10 = strings.TrimSpace(width.Narrow.String(code10))
	jibun = strings.TrimSpace(width.Narrow.String(jibun))

	if len([]rune(code10)) != 10 {
		return "", eris.Errorf("pnu: region code must be 10 characters, got %q", code10)
	}
	if jibun == "" {
		return "", eris.New("pnu: empty jibun")
	}

	flag := PlotNormal
	if strings.HasPrefix(jibun, mountainMarker) {
		flag = PlotMountain
	}
	jibun = strings.TrimSpace(strings.ReplaceAll(jibun, mountainMarker, ""))

	main, sub := jibun, "0"
	if i := strings.Index(jibun, "-"); i >= 0 {
		main = jibun[:i]
		sub = jibun[i+1:]
	}

	main = digitsOnly(main)
	sub = digitsOnly(sub)
	if main == "" {
		main = "0"
	}
	if sub == "" {
		sub = "0"
	}

	return code10 + flag + zfill4(main) + zfill4(sub), nil
}

// Decode splits a PNU by fixed offsets. Truncated input is tolerated: the
// missing main/sub segments default to "0000".
func Decode(pnu string) Parts {
	p := Parts{
		PlotType: PlotNormal,
		MainLot:  "0000",
		SubLot:   "0000",
	}
	p.RegionCode = slice(pnu, 0, 5)
	p.SubDistrictCode = slice(pnu, 5, 10)
	if f := slice(pnu, 10, 11); f != "" {
		p.PlotType = f
	}
	if m := slice(pnu, 11, 15); m != "" {
		p.MainLot = zfill4(m)
	}
	if s := slice(pnu, 15, 19); s != "" {
		p.SubLot = zfill4(s)
	}
	return p
}

// JibunString renders the parts back to the human jibun form
// `[산]<main>[-<sub>]`. A zero sub-lot is omitted.
func (p Parts) JibunString() string {
	var b strings.Builder
	if p.PlotType == PlotMountain {
		b.WriteString(mountainMarker)
	}
	b.WriteString(stripZeros(p.MainLot))
	if sub := stripZeros(p.SubLot); sub != "0" {
		b.WriteString("-")
		b.WriteString(sub)
	}
	return b.String()
}

// Code10 returns the combined region + sub-district code.
func (p Parts) Code10() string {
	return p.RegionCode + p.SubDistrictCode
}

// CategoryFromJibun extracts the land-category suffix from a cadastre jibun
// string like "290-34대". The last rune that is not a digit, hyphen or space
// is the category; "대" (building land) is assumed when none is present.
func CategoryFromJibun(jibun string) string {
	runes := []rune(jibun)
	for i := len(runes) - 1; i >= 0; i-- {
		r := runes[i]
		if r >= '0' && r <= '9' || r == '-' || r == ' ' {
			continue
		}
		return string(r)
	}
	return "대"
}

func digitsOnly(s string) string {
	return strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, s)
}

func zfill4(s string) string {
	if len(s) >= 4 {
		return s
	}
	return strings.Repeat("0", 4-len(s)) + s
}

func stripZeros(s string) string {
	t := strings.TrimLeft(s, "0")
	if t == "" {
		return "0"
	}
	return t
}

func slice(s string, from, to int) string {
	if from >= len(s) {
		return ""
	}
	if to > len(s) {
		to = len(s)
	}
	return s[from:to]
}
