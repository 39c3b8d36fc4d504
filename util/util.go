// Package util contains misc internal utilities.
package util

import (
	"strconv"
	"strings"
)

// IntSliceToCSV convets a slice of ints to CSV formatted data.
// e.g., []int{1,2,3,4,5} => "1,2,3,4,5"
func IntSliceToCSV(is []int) string {
	s := make([]string, len(is))
	for i, v := range is {
		s[i] = strconv.Itoa(v)
	}

	return strings.Join(s, ",")
}

// Arange mirrors numpy.arange for ints.  It can be called as:
//  Arange(end)
//  Arange(start, end)
//  Arange(start, end, step)
// and panics for any other number of arguments.  The result spans
// [start, end) stepping by step.
func Arange(args ...int) []int {
	var start, end, step int
	switch len(args) {
	case 1:
		start, end, step = 0, args[0], 1
	case 2:
		start, end, step = args[0], args[1], 1
	case 3:
		start, end, step = args[0], args[1], args[2]
	default:
		panic("util.Arange: must be called with 1 ~ 3 arguments")
	}
	out := make([]int, 0, (end-start)/step)
	for v := start; v < end; v += step {
		out = append(out, v)
	}
	return out
}

// UniqueInt returns the unique values in a slice of ints, preserving
// first-seen order.
func UniqueInt(is []int) []int {
	seen := make(map[int]struct{}, len(is))
	out := make([]int, 0, len(is))
	for _, v := range is {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
