// SPDX-FileCopyrightText: Copyright 2026 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package storage

// Key layouts shared by the services. Share tokens are stored under their own
// 48-hex value with no prefix; every other key family carries a distinct
// prefix.

// UserKey returns the directory key for a username.
func UserKey(username string) string {
	return "user:" + username
}

// ShareKey returns the share-store key for a token.
func ShareKey(token string) string {
	return token
}

// CoordKey returns the token-coordinator record key for a token.
func CoordKey(token string) string {
	return "tc:" + token
}

// CoordConsumedKey returns the consumed-marker key for a token.
func CoordConsumedKey(token string) string {
	return "tcused:" + token
}

// InboxKey returns the inbox-item key for a recipient and item id.
func InboxKey(recipient, id string) string {
	return InboxPrefix(recipient) + id
}

// InboxPrefix returns the inbox key prefix for a recipient.
func InboxPrefix(recipient string) string {
	return "inbox:" + recipient + ":"
}

// SessionKey returns the session-record key for a session id.
func SessionKey(id string) string {
	return "session:" + id
}

// SessionBySenderKey returns the sender-index key for a sender and session id.
func SessionBySenderKey(sender, id string) string {
	return SessionBySenderPrefix(sender) + id
}

// SessionBySenderPrefix returns the sender-index key prefix for a sender.
func SessionBySenderPrefix(sender string) string {
	return "sessionBySender:" + sender + ":"
}

// RequestKey returns the access-request key for a request id.
func RequestKey(id string) string {
	return RequestPrefix + id
}

// RequestPrefix is the key prefix of access requests.
const RequestPrefix = "request:"
