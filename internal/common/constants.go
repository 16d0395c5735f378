// Package common contains constants, sentinel errors and small helpers
// shared by the medscribe client and server.
package common

// AuthorizationHeader carries the bearer access token on outbound requests.
const AuthorizationHeader = "Authorization"

// BearerPrefix precedes the access token in AuthorizationHeader.
const BearerPrefix = "Bearer "

// StoreName is the fixed key of the persisted client record store.
const StoreName = "patient-messages-store-v1"

// ErrorCodeNoSpeech marks a voice submission whose audio contained no
// recognisable speech. Resubmitting the same audio cannot succeed.
const ErrorCodeNoSpeech = "no_speech_detected"
