package locator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"devicert-go/errcode"
	"devicert-go/types"
)

// table is a fixed in-memory Table.
type table map[types.Category][]RawPath

func (t table) Len(c types.Category) int               { return len(t[c]) }
func (t table) PathAt(c types.Category, i int) RawPath { return t[c][i] }

func testTable() table {
	return table{
		types.System:    {Heap(), Clock()},
		types.InputPin:  {GPIO("pa0"), GPIO("pb3")},
		types.OutputPin: {GPIO("pc13"), GPIO("pb3")},
		types.PWM:       {PWM("pa1"), PWM("pa2")},
		types.Serial:    {Serial("usart2"), Serial("usart1")},
	}
}

func TestParseAndResolveExamples(t *testing.T) {
	tbl := testTable()
	cases := []struct {
		loc  string
		want types.ResourceID
	}{
		{"digital://gpio/pa0", types.ResourceID{Scheme: types.Digital, Path: types.IndexedPath{Category: types.InputPin, Index: 0}}},
		{"event://gpio/pa0", types.ResourceID{Scheme: types.EventScheme, Path: types.IndexedPath{Category: types.InputPin, Index: 0}}},
		{"percent://pwm/pa1/maxduty", types.ResourceID{Scheme: types.Percent, Path: types.IndexedPath{Category: types.PWM, Index: 0}, Mode: types.ModeMaxDuty}},
		{"analog://pwm/pa2/max", types.ResourceID{Scheme: types.Analog, Path: types.IndexedPath{Category: types.PWM, Index: 1}, Mode: types.ModeMaxDuty}},
		{"percent://pwm/pa2", types.ResourceID{Scheme: types.Percent, Path: types.IndexedPath{Category: types.PWM, Index: 1}}},
		{"percent://pwm/pa2/", types.ResourceID{Scheme: types.Percent, Path: types.IndexedPath{Category: types.PWM, Index: 1}}},
		{"sys://sys/heap", types.ResourceID{Scheme: types.Sys, Path: types.IndexedPath{Category: types.System, Index: 0}}},
		{"sys://sys/sysclock", types.ResourceID{Scheme: types.Sys, Path: types.IndexedPath{Category: types.System, Index: 1}}},
		{"bus://serial/USART1", types.ResourceID{Scheme: types.Bus, Path: types.IndexedPath{Category: types.Serial, Index: 1}}},
		{"digital://gpio/pc13", types.ResourceID{Scheme: types.Digital, Path: types.IndexedPath{Category: types.OutputPin, Index: 0}}},
	}
	for _, tc := range cases {
		got, err := Lookup(tc.loc, tbl)
		require.NoError(t, err, tc.loc)
		assert.Equal(t, tc.want, got, tc.loc)
	}
}

func TestResolveIsIdempotent(t *testing.T) {
	tbl := testTable()
	a, err := Lookup("percent://pwm/pa1/maxduty", tbl)
	require.NoError(t, err)
	b, err := Lookup("percent://pwm/pa1/maxduty", tbl)
	require.NoError(t, err)
	assert.True(t, a == b)
}

func TestInputShadowsOutput(t *testing.T) {
	id, err := Lookup("digital://gpio/pb3", testTable())
	require.NoError(t, err)
	assert.Equal(t, types.InputPin, id.Path.Category)
	assert.Equal(t, uint8(1), id.Path.Index)
	assert.Equal(t, []string{"pb3"}, Ambiguous(testTable()))
}

func TestResolveNotFound(t *testing.T) {
	_, err := Lookup("digital://gpio/pz9", testTable())
	require.Error(t, err)
	assert.Equal(t, errcode.NotFound, errcode.Of(err))

	_, err = Lookup("bus://serial/usart3", testTable())
	assert.Equal(t, errcode.NotFound, errcode.Of(err))
}

func TestParseErrors(t *testing.T) {
	bad := []string{
		"",
		"gpio/pa0",
		"://gpio/pa0",
		"spi://gpio/pa0",
		"digital:/gpio/pa0",
		"digital://gpio",
		"digital://gpio/",
		"digital://gpio/p",
		"digital://gpio/1a",
		"digital://gpio/pa16",
		"digital://gpio/pa01",
		"digital://gpio/pa0/x",
		"percent://pwm/pa1/min",
		"percent://pwm/pa1/max/extra",
		"sys://sys/stack",
		"bus://serial/usart4",
		"bus://serial/spi1",
	}
	for _, s := range bad {
		_, err := Parse(s)
		require.Error(t, err, s)
		assert.Equal(t, errcode.URIParse, errcode.Of(err), s)
	}
}

func TestReservedCategoriesAreNotFound(t *testing.T) {
	for _, s := range []string{"analog://adc/0", "event://timer/tim2", "bus://i2c/i2c1"} {
		_, err := Parse(s)
		assert.Equal(t, errcode.NotFound, errcode.Of(err), s)
	}
}

func TestPinKeyCanonicalises(t *testing.T) {
	l, err := Parse("digital://gpio/PB15")
	require.NoError(t, err)
	assert.Equal(t, "pb15", l.Path.Key)
	assert.Equal(t, "digital://gpio/pb15", l.String())
	assert.Equal(t, 0, SerialIndex("uart1"))
	assert.Equal(t, 2, SerialIndex("USART3"))
	assert.Equal(t, -1, SerialIndex("spi1"))
}
