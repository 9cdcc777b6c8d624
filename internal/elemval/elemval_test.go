package elemval

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/suyashkumar/dicom"
	"github.com/suyashkumar/dicom/pkg/tag"
)

func mustValue(t *testing.T, data interface{}) dicom.Value {
	t.Helper()
	v, err := dicom.NewValue(data)
	require.NoError(t, err)
	return v
}

func TestString(t *testing.T) {
	cases := []struct {
		name string
		data interface{}
		want string
	}{
		{"single string", []string{"DOE^JOHN "}, "DOE^JOHN"},
		{"multi string", []string{"ORIGINAL", "PRIMARY"}, `ORIGINAL\PRIMARY`},
		{"padded uid", []string{"1.2.3\x00"}, "1.2.3"},
		{"ints", []int{512, 256}, `512\256`},
		{"floats", []float64{0.5, 2}, `0.5\2`},
		{"bytes", []byte{1, 2}, `1\2`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := String(mustValue(t, tc.data))
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestString_Sequence(t *testing.T) {
	seq := mustValue(t, [][]*dicom.Element{{}})
	_, err := String(seq)
	assert.ErrorIs(t, err, ErrNotScalar)

	_, err = String(nil)
	assert.ErrorIs(t, err, ErrNoValue)
}

func TestInt(t *testing.T) {
	n, err := Int(mustValue(t, []int{3}))
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	n, err = Int(mustValue(t, []string{" 12 "}))
	require.NoError(t, err)
	assert.Equal(t, 12, n)

	_, err = Int(mustValue(t, []string{"abc"}))
	assert.ErrorIs(t, err, ErrNotNumeric)

	_, err = Int(mustValue(t, []int{}))
	assert.ErrorIs(t, err, ErrEmptyValues)
}

func TestFloat(t *testing.T) {
	f, err := Float(mustValue(t, []string{"-1024"}))
	require.NoError(t, err)
	assert.Equal(t, -1024.0, f)

	f, err = Float(mustValue(t, []float64{1.5}))
	require.NoError(t, err)
	assert.Equal(t, 1.5, f)
}

func TestFind(t *testing.T) {
	rows := &dicom.Element{Tag: tag.Rows, RawValueRepresentation: "US", Value: mustValue(t, []int{4})}
	elems := []*dicom.Element{nil, rows}

	assert.Same(t, rows, Find(elems, tag.Rows))
	assert.Nil(t, Find(elems, tag.Columns))

	n, err := IntOf(elems, tag.Rows)
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	_, err = IntOf(elems, tag.Columns)
	assert.ErrorIs(t, err, ErrNoValue)
}
