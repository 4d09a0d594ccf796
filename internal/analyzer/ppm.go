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
	"errors"
	"fmt"
)

// ErrBadImage is returned for captures that are not parseable binary PPM.
var ErrBadImage = errors.New("analyzer: malformed image")

// pixelStride is how many pixels are skipped between samples. 50 keeps a
// 1080p frame under a few thousand samples while staying representative.
const pixelStride = 50

// MeanLuma parses a binary PPM (P6) image and returns the mean Rec.601
// luma of its pixels, normalized to [0,1]. The header parser accepts
// arbitrary whitespace and # comments, as the format allows.
func MeanLuma(data []byte) (float64, error) {
	if len(data) < 16 || data[0] != 'P' || data[1] != '6' {
		return 0, fmt.Errorf("%w: missing P6 magic", ErrBadImage)
	}
	pos := 2

	width, pos, err := readNumber(data, pos)
	if err != nil {
		return 0, fmt.Errorf("%w: width: %v", ErrBadImage, err)
	}
	height, pos, err := readNumber(data, pos)
	if err != nil {
		return 0, fmt.Errorf("%w: height: %v", ErrBadImage, err)
	}
	maxval, pos, err := readNumber(data, pos)
	if err != nil {
		return 0, fmt.Errorf("%w: maxval: %v", ErrBadImage, err)
	}
	if width <= 0 || height <= 0 || maxval <= 0 || maxval > 255 {
		return 0, fmt.Errorf("%w: header %dx%d maxval %d", ErrBadImage, width, height, maxval)
	}

	// Exactly one whitespace byte separates the header from pixel data.
	if pos < len(data) && isSpace(data[pos]) {
		pos++
	}
	if pos >= len(data) {
		return 0, fmt.Errorf("%w: no pixel data", ErrBadImage)
	}

	pixels := data[pos:]
	max := float64(maxval)

	var total float64
	var count int
	for i := 0; i+2 < len(pixels); i += 3 * pixelStride {
		r := float64(pixels[i]) / max
		g := float64(pixels[i+1]) / max
		b := float64(pixels[i+2]) / max
		total += 0.299*r + 0.587*g + 0.114*b
		count++
	}
	if count == 0 {
		return 0, fmt.Errorf("%w: no pixels", ErrBadImage)
	}
	return total / float64(count), nil
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\r' || b == '\n' || b == '\v' || b == '\f'
}

// readNumber skips whitespace and # comments, then parses one decimal
// integer.
func readNumber(data []byte, pos int) (int, int, error) {
	for pos < len(data) {
		if isSpace(data[pos]) {
			pos++
			continue
		}
		if data[pos] == '#' {
			for pos < len(data) && data[pos] != '\n' {
				pos++
			}
			continue
		}
		break
	}

	start := pos
	val := 0
	for pos < len(data) && data[pos] >= '0' && data[pos] <= '9' {
		val = val*10 + int(data[pos]-'0')
		pos++
	}
	if pos == start {
		return 0, pos, errors.New("expected digits")
	}
	return val, pos, nil
}
