package markdown

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/unit-price-tracker/internal/domain/extract"
)

func profile(t *testing.T, dataset string) extract.Profile {
	t.Helper()
	p, err := extract.Lookup(dataset)
	require.NoError(t, err)
	return p
}

const wageTable = `# 건설업 임금실태

| year | occupation | wage |
|------|------------|-----:|
| 2023 | 보통인부 | 150,000 |
| 2023 | 철근공 | 230,000 |
| 2024 | 보통인부 | 161,000 |
`

func TestLoad_Long(t *testing.T) {
	doc, records, err := Load(strings.NewReader(wageTable), profile(t, extract.Construction))
	require.NoError(t, err)

	assert.Equal(t, "건설업 임금실태", doc.Title)
	assert.Equal(t, []string{"year", "occupation", "wage"}, doc.Header)
	assert.Equal(t, []extract.PriceRecord{
		{Year: 2023, Category: "보통인부", Value: 150000},
		{Year: 2023, Category: "철근공", Value: 230000},
		{Year: 2024, Category: "보통인부", Value: 161000},
	}, records)
}

func TestLoad_ColumnOrderDoesNotMatter(t *testing.T) {
	reordered := `| wage | year | occupation |
|---|---|---|
| 150,000 | 2023 | 보통인부 |
| 230,000 | 2023 | 철근공 |
| 161,000 | 2024 | 보통인부 |
`
	_, want, err := Load(strings.NewReader(wageTable), profile(t, extract.Construction))
	require.NoError(t, err)
	_, got, err := Load(strings.NewReader(reordered), profile(t, extract.Construction))
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestLoad_ByteOrderMark(t *testing.T) {
	p := profile(t, extract.Construction)
	plain := "| year | occupation | wage |\n|---|---|---|\n| 2023 | 보통인부 | 150000 |\n"
	withBOM := "\ufeff" + plain

	_, want, err := Load(strings.NewReader(plain), p)
	require.NoError(t, err)
	doc, got, err := Load(strings.NewReader(withBOM), p)
	require.NoError(t, err)

	assert.Equal(t, "year", doc.Header[0])
	assert.Equal(t, want, got)
}

func TestLoad_DropsMalformedRows(t *testing.T) {
	src := `| year | spec | price |
|---|---|---|
| 2020 | BB-3(#57) 중층용 | 61000 |
| 2020 | 70000 |
| 2025 | BB-3(#57) 중층용 | 84000 |
`
	doc, records, err := Load(strings.NewReader(src), profile(t, extract.Concrete))
	require.NoError(t, err)
	assert.Equal(t, 1, doc.Dropped)
	require.Len(t, records, 2)
	assert.Equal(t, 2020, records[0].Year)
	assert.Equal(t, 2025, records[1].Year)
}

func TestLoad_CoercionIsFatal(t *testing.T) {
	src := `| year | spec | price |
|---|---|---|
| 2020 | BB-3(#57) 중층용 | 61000 |
| 2025 | BB-3(#57) 중층용 | 문의 |
`
	_, records, err := Load(strings.NewReader(src), profile(t, extract.Concrete))
	require.Error(t, err)
	assert.Nil(t, records)
	assert.True(t, errors.Is(err, extract.ErrCoercion))

	var ce *CoercionError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, 4, ce.Row)
	assert.Equal(t, "price", ce.Column)
	assert.Equal(t, "문의", ce.Value)
}

func TestLoad_NegativeAmount(t *testing.T) {
	src := "| year | spec | price |\n|---|---|---|\n| 2020 | WC-1(#57) | -5 |\n"
	_, _, err := Load(strings.NewReader(src), profile(t, extract.Concrete))
	assert.True(t, errors.Is(err, extract.ErrCoercion))
}

func TestLoad_MissingColumn(t *testing.T) {
	src := "| year | brand |\n|---|---|\n| 2021 | 대한전선 |\n"
	_, _, err := Load(strings.NewReader(src), profile(t, extract.Concrete))
	assert.True(t, errors.Is(err, ErrMissingColumn))
	assert.EqualError(t, err, "required column missing: spec (accepted: spec, 규격)")
}

func TestParse_StopsAfterFirstTable(t *testing.T) {
	src := `# 아스팔트 콘크리트

| year | spec | price |
|---|---|---|
| 2020 | BB-3(#57) 중층용 | 61000 |
| 2025 | BB-3(#57) 중층용 | 84000 |

참고 자료

| year | spec | price |
|---|---|---|
| 2025 | WC-2(#78) 표층용 | 96000 |
`
	doc, records, err := Load(strings.NewReader(src), profile(t, extract.Concrete))
	require.NoError(t, err)
	assert.Len(t, doc.Rows, 2)
	assert.Zero(t, doc.Dropped, "the second header and divider are not rows")
	require.Len(t, records, 2)
	assert.Equal(t, int64(84000), records[1].Value)
}

func TestLoad_Aliases(t *testing.T) {
	src := "| 연도 | 직위 | 노임단가 |\n|---|---|---|\n| 2024년 | 특급기술자 | 423,000원 |\n"
	_, records, err := Load(strings.NewReader(src), profile(t, extract.Engineering))
	require.NoError(t, err)
	assert.Equal(t, []extract.PriceRecord{{Year: 2024, Category: "특급기술자", Value: 423000}}, records)
}

func TestLoad_Wide(t *testing.T) {
	src := `| 품명 | 규격 | 2021 | 2022 | 2023 | 2024 |
|---|---|---|---|---|---|
| F-CV | 2.5SQ | 1,200 | 1,350 | 1,500 | 1,480 |
| HIV | 4SQ | 900 |  | 1,100 |  |
`
	_, records, err := Load(strings.NewReader(src), profile(t, extract.Cable))
	require.NoError(t, err)
	assert.Equal(t, []extract.PriceRecord{
		{Year: 2021, Category: "F-CV 2.5SQ", Value: 1200},
		{Year: 2022, Category: "F-CV 2.5SQ", Value: 1350},
		{Year: 2023, Category: "F-CV 2.5SQ", Value: 1500},
		{Year: 2024, Category: "F-CV 2.5SQ", Value: 1480},
		{Year: 2021, Category: "HIV 4SQ", Value: 900},
		{Year: 2023, Category: "HIV 4SQ", Value: 1100},
	}, records)
}

func TestParse_FrontMatter(t *testing.T) {
	src := `---
dataset: concrete
title: 아스팔트 콘크리트
unit: 원/톤
---
| year | spec | price |
|---|---|---|
| 2020 | BB-3(#57) 중층용 | 61000 |
`
	doc, err := Parse(strings.NewReader(src))
	require.NoError(t, err)
	assert.Equal(t, "concrete", doc.Meta.Dataset)
	assert.Equal(t, "원/톤", doc.Meta.Unit)
	assert.Equal(t, "아스팔트 콘크리트", doc.Title, "front matter title is used without a heading")
	assert.Len(t, doc.Rows, 1)
}

func TestParse_NoTable(t *testing.T) {
	_, err := Parse(strings.NewReader("# 제목\n\n본문만 있습니다.\n"))
	assert.ErrorIs(t, err, ErrNoTable)
}

func TestSplitRow(t *testing.T) {
	assert.Equal(t, []string{"a", "b", "c"}, splitRow("| a | b |c|"))
	assert.Equal(t, []string{"a", "", "c"}, splitRow("|a||c|"))
	assert.Equal(t, []string{"a", "b"}, splitRow("a | b"))
	assert.True(t, isDivider(splitRow("|:---|---:|:-:|")))
	assert.False(t, isDivider(splitRow("| 2020 | x |")))
}

func TestRender_RoundTrip(t *testing.T) {
	table := &extract.Table{
		Dataset: extract.Concrete,
		Title:   "토목자재 - 아스팔트 콘크리트",
		Fields:  profile(t, extract.Concrete).Fields,
		Records: []extract.PriceRecord{
			{Year: 2020, Category: "BB-3(#57) 중층용", Value: 61000},
			{Year: 2025, Category: "WC-2(#78) 표층용", Value: 96000},
		},
	}

	var buf bytes.Buffer
	require.NoError(t, Render(&buf, table, true))
	assert.True(t, strings.HasPrefix(buf.String(), "# 토목자재 - 아스팔트 콘크리트\n"))

	doc, records, err := Load(&buf, profile(t, extract.Concrete))
	require.NoError(t, err)
	assert.Equal(t, table.Title, doc.Title)
	assert.Equal(t, table.Records, records)
}

func TestDisplayWidth(t *testing.T) {
	assert.Equal(t, 4, displayWidth("BB-3"))
	assert.Equal(t, 8, displayWidth("보통인부"))
	assert.Equal(t, 12, displayWidth("HIV 4SQ 전선"))
}
