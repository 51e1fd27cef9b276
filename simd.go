// Copyright 2025 go-jpeg2000 Authors
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

package openjpeg

import (
	"sync"

	hwyimage "github.com/ajroetker/go-highway/hwy/contrib/image"
)

// planeFromSamples copies row-major samples into a SIMD-aligned plane.
func planeFromSamples(samples []int32, width, height int) *hwyimage.Image[int32] {
	plane := hwyimage.NewImage[int32](width, height)
	for y := range height {
		copy(plane.Row(y)[:width], samples[y*width:(y+1)*width])
	}
	return plane
}

// ycc holds 6 pooled float64 planes for the inverse ICT
// (Y, Cb, Cr in; R, G, B out).
type ycc struct {
	imgs [6]*hwyimage.Image[float64]
	w, h int
}

var yccPool = sync.Pool{New: func() any { return new(ycc) }}

func getYCC(w, h int) *ycc {
	buf := yccPool.Get().(*ycc)
	if buf.w != w || buf.h != h {
		for i := range buf.imgs {
			buf.imgs[i] = hwyimage.NewImage[float64](w, h)
		}
		buf.w = w
		buf.h = h
	}
	return buf
}

func putYCC(buf *ycc) {
	yccPool.Put(buf)
}
