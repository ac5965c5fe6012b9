/*
Copyright 2026 The standyield Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package core

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
)

// UtilizationClass is a diameter-at-breast-height bin used to bucket the trees of a layer.
// The numeric value is the class index; SMALL sits one slot below ALL.
type UtilizationClass int

// enumeration of UtilizationClass
const (
	// UtilSmall holds trees under 7.5 cm.
	UtilSmall UtilizationClass = iota - 1
	// UtilAll is the aggregate over every tree of at least 7.5 cm.
	UtilAll
	// U75To125 holds trees from 7.5 to 12.5 cm.
	U75To125
	// U125To175 holds trees from 12.5 to 17.5 cm.
	U125To175
	// U175To225 holds trees from 17.5 to 22.5 cm.
	U175To225
	// Over225 holds trees of 22.5 cm and over.
	Over225

	// UtilLargest is the open-ended top class, used for veteran layers.
	UtilLargest = Over225
)

// UtilizationVectorSize is the number of slots in a UtilizationVector.
const UtilizationVectorSize = 6

// MinimumDiameter is the lower diameter bound (cm) of the ALL class.
const MinimumDiameter = 7.5

// utilizationBounds holds the low and high diameter bound (cm) per class, offset by one.
var utilizationBounds = [UtilizationVectorSize][2]float64{
	{0, 7.5},
	{7.5, 10000},
	{7.5, 12.5},
	{12.5, 17.5},
	{17.5, 22.5},
	{22.5, 10000},
}

var utilizationNames = [UtilizationVectorSize]string{
	"small", "all", "7.5-12.5", "12.5-17.5", "17.5-22.5", "22.5+",
}

// UtilClasses lists the four diameter-bounded classes in ascending diameter order.
var UtilClasses = []UtilizationClass{U75To125, U125To175, U175To225, Over225}

// AllUtilizationClasses lists every slot of a UtilizationVector in index order.
var AllUtilizationClasses = []UtilizationClass{UtilSmall, UtilAll, U75To125, U125To175, U175To225, Over225}

// Valid reports whether uc names one of the defined classes.
func (uc UtilizationClass) Valid() bool {
	return uc >= UtilSmall && uc <= Over225
}

func (uc UtilizationClass) slot() int {
	if !uc.Valid() {
		panic(fmt.Sprintf("utilization class %d out of range [%d, %d]", int(uc), UtilSmall, Over225))
	}
	return int(uc) - int(UtilSmall)
}

// Index returns the class index (-1 for SMALL, 0 for ALL, 1..4 for the bounded classes).
func (uc UtilizationClass) Index() int {
	return int(uc)
}

// LowBound returns the smallest diameter (cm) belonging to the class.
func (uc UtilizationClass) LowBound() float64 {
	return utilizationBounds[uc.slot()][0]
}

// HighBound returns the diameter (cm) at which the class ends.
func (uc UtilizationClass) HighBound() float64 {
	return utilizationBounds[uc.slot()][1]
}

// Previous returns the next-lower class, if there is one.
func (uc UtilizationClass) Previous() (UtilizationClass, bool) {
	if !uc.Valid() || uc == UtilSmall {
		return UtilSmall, false
	}
	return uc - 1, true
}

// String returns the class label.
func (uc UtilizationClass) String() string {
	if !uc.Valid() {
		return fmt.Sprintf("UtilizationClass(%d)", int(uc))
	}
	return utilizationNames[uc.slot()]
}

// UtilizationVector holds one value per utilization class.
// It is a value type: assigning or passing it by value copies all slots.
type UtilizationVector [UtilizationVectorSize]float64

// NewUtilizationVector returns a zeroed vector.
func NewUtilizationVector() UtilizationVector {
	return UtilizationVector{}
}

// NewUtilizationVectorOf returns a vector with the given ALL value and every other slot zero.
func NewUtilizationVectorOf(all float64) UtilizationVector {
	var v UtilizationVector
	v.Set(UtilAll, all)
	return v
}

// Get returns the value stored for uc. It panics if uc is not a defined class.
func (v *UtilizationVector) Get(uc UtilizationClass) float64 {
	return v[uc.slot()]
}

// Set stores x for uc. It panics if uc is not a defined class.
func (v *UtilizationVector) Set(uc UtilizationClass, x float64) {
	v[uc.slot()] = x
}

// ScalarInPlace replaces the value stored for uc with f applied to it.
func (v *UtilizationVector) ScalarInPlace(uc UtilizationClass, f func(float64) float64) {
	i := uc.slot()
	v[i] = f(v[i])
}

// MapInPlace applies f to every slot.
func (v *UtilizationVector) MapInPlace(f func(float64) float64) {
	for i := range v {
		v[i] = f(v[i])
	}
}

// ClassSum returns the sum of the four diameter-bounded classes.
func (v *UtilizationVector) ClassSum() float64 {
	return floats.Sum(v[U75To125.slot() : Over225.slot()+1])
}

// Classes returns the values of the four diameter-bounded classes in ascending order.
func (v *UtilizationVector) Classes() []float64 {
	out := make([]float64, len(UtilClasses))
	for i, uc := range UtilClasses {
		out[i] = v.Get(uc)
	}
	return out
}

// String renders the vector as "[small all c1 c2 c3 c4]".
func (v UtilizationVector) String() string {
	return fmt.Sprintf("[%g %g %g %g %g %g]", v[0], v[1], v[2], v[3], v[4], v[5])
}
