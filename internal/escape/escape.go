// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: MIT

// Package escape guards the delimiters used when several free-form tokens
// are joined into one composite identifier.
package escape

import "strings"

// Delimiters escapes the reserved characters in an identifier component so
// it can be joined with "|" without ambiguity. "^" must be escaped before
// "|" so that pre-existing "^|" sequences are not corrupted.
func Delimiters(value string) string {
	value = strings.ReplaceAll(value, "^", "^^")
	return strings.ReplaceAll(value, "|", "^|")
}
