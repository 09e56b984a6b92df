// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: MIT

// Package sqsurl parses SQS queue URLs. Queue URLs from custom or legacy
// endpoints are not guaranteed to be well-formed URLs, so parsing is plain
// string splitting rather than net/url.
package sqsurl

import "strings"

// QueueURL holds the fields recoverable from a queue URL. All fields are
// empty when the URL does not parse.
type QueueURL struct {
	QueueName string
	AccountID string
	Region    string
}

// ParseURL parses a standard queue URL of the form
// https://sqs.<region>.amazonaws.com/<accountId>/<queueName>. The scheme is
// optional. The region is only recovered from the four-part domain form;
// other "sqs"-prefixed hosts yield an empty region.
func ParseURL(url string) (QueueURL, bool) {
	segments, ok := splitQueueURL(url)
	if !ok || !strings.HasPrefix(strings.ToLower(segments[0]), "sqs") {
		return QueueURL{}, false
	}
	parsed := QueueURL{
		QueueName: segments[2],
		AccountID: segments[1],
	}
	domainParts := strings.Split(segments[0], ".")
	if len(domainParts) == 4 {
		parsed.Region = domainParts[1]
	}
	return parsed, true
}

// QueueName is the lenient variant of ParseURL: it extracts the queue name
// from any three-segment URL with a numeric account id, without requiring
// the sqs domain prefix. Use it whenever only the queue name is needed,
// since queue URLs may come from non-standard endpoints.
func QueueName(url string) string {
	segments, ok := splitQueueURL(url)
	if !ok {
		return ""
	}
	return segments[2]
}

func splitQueueURL(url string) ([]string, bool) {
	url = strings.TrimPrefix(url, "http://")
	url = strings.TrimPrefix(url, "https://")
	segments := strings.Split(url, "/")
	if len(segments) != 3 || !isAccountID(segments[1]) || !isValidQueueName(segments[2]) {
		return nil, false
	}
	return segments, true
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

// Queue names are 1-80 characters of alphanumerics, hyphens and underscores.
func isValidQueueName(s string) bool {
	if len(s) == 0 || len(s) > 80 {
		return false
	}
	for _, c := range s {
		switch {
		case c == '_' || c == '-':
		case c >= 'a' && c <= 'z':
		case c >= 'A' && c <= 'Z':
		case c >= '0' && c <= '9':
		default:
			return false
		}
	}
	return true
}
