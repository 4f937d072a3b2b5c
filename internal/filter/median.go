// Copyright (C) 2020 Markus L. Noga
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

package filter

// Applies a 3x3 median filter to the 2D image given by data and width, mirroring at the borders.
// Returns a newly allocated array. NaNs are not supported
func Median3x3(data []float32, width int) ([]float32, error) {
	if err := checkWidth(data, width); err != nil {
		return nil, err
	}
	height := len(data) / width
	res := make([]float32, len(data))
	var gathered [9]float32
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			j := 0
			for dy := -1; dy <= 1; dy++ {
				row := reflect(height, y+dy) * width
				for dx := -1; dx <= 1; dx++ {
					gathered[j] = data[row+reflect(width, x+dx)]
					j++
				}
			}
			res[y*width+x] = median9(&gathered)
		}
	}
	return res, nil
}

// Calculates the median of nine values with an optimal median network of 19 min/max steps.
// Modifies the elements in place.
// From https://stackoverflow.com/questions/45453537/optimal-9-element-sorting-network-that-reduces-to-an-optimal-median-of-9-network
func median9(a *[9]float32) float32 {
	if a[0] > a[1] {
		a[0], a[1] = a[1], a[0]
	}
	if a[3] > a[4] {
		a[3], a[4] = a[4], a[3]
	}
	if a[6] > a[7] {
		a[6], a[7] = a[7], a[6]
	}
	if a[1] > a[2] {
		a[1], a[2] = a[2], a[1]
	}
	if a[4] > a[5] {
		a[4], a[5] = a[5], a[4]
	}
	if a[7] > a[8] {
		a[7], a[8] = a[8], a[7]
	}
	if a[0] > a[1] {
		a[0], a[1] = a[1], a[0]
	}
	if a[3] > a[4] {
		a[3], a[4] = a[4], a[3]
	}
	if a[6] > a[7] {
		a[6], a[7] = a[7], a[6]
	}
	if a[0] > a[3] { // max(0,3)
		a[3] = a[0]
	}
	if a[3] > a[6] { // max(3,6)
		a[6] = a[3]
	}
	if a[1] > a[4] {
		a[1], a[4] = a[4], a[1]
	}
	if a[4] > a[7] { // min(4,7)
		a[4] = a[7]
	}
	if a[1] > a[4] { // max(1,4)
		a[4] = a[1]
	}
	if a[5] > a[8] { // min(5,8)
		a[5] = a[8]
	}
	if a[2] > a[5] { // min(2,5)
		a[2] = a[5]
	}
	if a[2] > a[4] {
		a[2], a[4] = a[4], a[2]
	}
	if a[4] > a[6] { // min(4,6)
		a[4] = a[6]
	}
	if a[2] > a[4] { // max(2,4)
		a[4] = a[2]
	}
	return a[4]
}
