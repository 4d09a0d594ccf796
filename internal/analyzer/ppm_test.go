// Copyright 2025 The luxd Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package analyzer

import (
	"bytes"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func solidPPM(header string, w, h int, r, g, b byte) []byte {
	var buf bytes.Buffer
	buf.WriteString(header)
	for i := 0; i < w*h; i++ {
		buf.Write([]byte{r, g, b})
	}
	return buf.Bytes()
}

func TestMeanLumaSolidColors(t *testing.T) {
	header := "P6\n64 64\n255\n"

	luma, err := MeanLuma(solidPPM(header, 64, 64, 255, 255, 255))
	require.NoError(t, err)
	assert.InDelta(t, 1.0, luma, 0.001)

	luma, err = MeanLuma(solidPPM(header, 64, 64, 0, 0, 0))
	require.NoError(t, err)
	assert.InDelta(t, 0.0, luma, 0.001)

	luma, err = MeanLuma(solidPPM(header, 64, 64, 255, 0, 0))
	require.NoError(t, err)
	assert.InDelta(t, 0.299, luma, 0.001)

	luma, err = MeanLuma(solidPPM(header, 64, 64, 128, 128, 128))
	require.NoError(t, err)
	assert.InDelta(t, 128.0/255.0, luma, 0.001)
}

func TestMeanLumaHeaderVariants(t *testing.T) {
	headers := []string{
		"P6 64 64 255\n",
		"P6\t64\r\n64\n255 ",
		"P6\n# made by a screenshot tool\n64 64\n# maxval next\n255\n",
	}
	for _, header := range headers {
		luma, err := MeanLuma(solidPPM(header, 64, 64, 255, 255, 255))
		require.NoError(t, err, "header %q", header)
		assert.InDelta(t, 1.0, luma, 0.001)
	}
}

func TestMeanLumaRejectsGarbage(t *testing.T) {
	cases := [][]byte{
		nil,
		[]byte("P5\n64 64\n255\n" + "xxxxxxxxxxxxxxxx"),
		[]byte("P6\n64 64\n"),
		[]byte("P6\nwide tall deep\n aaaaaaaaaaaaa"),
		[]byte(fmt.Sprintf("P6\n64 64\n%d\n%s", 70000, "aaaaaaaaaaaaaaaa")),
	}
	for i, data := range cases {
		_, err := MeanLuma(data)
		assert.ErrorIs(t, err, ErrBadImage, "case %d", i)
	}
}
