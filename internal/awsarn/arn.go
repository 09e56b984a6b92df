// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: MIT

// Package awsarn extracts the ARN fields the attribute generator needs.
// Malformed input is a normal outcome and never an error; every accessor
// reports absence instead.
package awsarn

import (
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws/arn"
)

// Parse splits an ARN into its parts. On top of the SDK's format check
// (literal "arn" prefix, at least six colon-delimited parts) the account id
// must be all digits; anything else fails the parse as a whole.
func Parse(s string) (arn.ARN, bool) {
	parsed, err := arn.Parse(s)
	if err != nil {
		return arn.ARN{}, false
	}
	if !isAccountID(parsed.AccountID) {
		return arn.ARN{}, false
	}
	return parsed, true
}

// AccountID returns the account id part, or "" if the ARN is malformed.
func AccountID(s string) string {
	parsed, ok := Parse(s)
	if !ok {
		return ""
	}
	return parsed.AccountID
}

// Region returns the region part, or "" if the ARN is malformed.
func Region(s string) string {
	parsed, ok := Parse(s)
	if !ok {
		return ""
	}
	return parsed.Region
}

// ResourceName returns the last colon-delimited part of the ARN. The result
// may still carry a "/"-delimited resource-type prefix such as "table/".
func ResourceName(s string) string {
	if _, ok := Parse(s); !ok {
		return ""
	}
	parts := strings.Split(s, ":")
	return parts[len(parts)-1]
}

// DynamoDBTableName returns the table name from a DynamoDB table ARN.
func DynamoDBTableName(s string) string {
	return strings.TrimPrefix(ResourceName(s), "table/")
}

// KinesisStreamName returns the stream name from a Kinesis stream ARN.
func KinesisStreamName(s string) string {
	return strings.TrimPrefix(ResourceName(s), "stream/")
}

func isAccountID(s string) bool {
	if s == "" {
		return false
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}
