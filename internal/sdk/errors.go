// ABOUTME: Streaming SDK error codes
// ABOUTME: Error implements error; its text is the SDK's human readable message
package sdk

import "errors"

// Error is an SDK status code
type Error int

const (
	OK Error = iota
	ErrBadAPIVersion
	ErrAPIInitializationFailed
	ErrTrackNotPlayable
	ErrBadApplicationKey
	ErrBadUsernameOrPassword
	ErrUserBanned
	ErrUnableToContactServer
	ErrClientTooOld
	ErrOtherPermanent
	ErrBadUserAgent
	ErrMissingCallback
	ErrInvalidIndata
	ErrIndexOutOfRange
	ErrUserNeedsPremium
	ErrOtherTransient
	ErrIsLoading
	ErrNoStreamAvailable
	ErrPermissionDenied
	ErrInboxIsFull
	ErrNoCache
	ErrNoSuchUser
	ErrNoCredentials
	ErrNetworkDisabled
	ErrInvalidDeviceID
	ErrApplicationBanned
	ErrOfflineTooManyTracks
	ErrOfflineDiskCache
	ErrOfflineExpired
	ErrOfflineNotAllowed
	ErrSystemFailure
)

var messages = map[Error]string{
	OK:                         "No error",
	ErrBadAPIVersion:           "Invalid library version",
	ErrAPIInitializationFailed: "Initialization failed",
	ErrTrackNotPlayable:        "Track not playable",
	ErrBadApplicationKey:       "Invalid application key",
	ErrBadUsernameOrPassword:   "Incorrect username or password",
	ErrUserBanned:              "Account banned",
	ErrUnableToContactServer:   "Unable to contact server",
	ErrClientTooOld:            "Client is too old",
	ErrOtherPermanent:          "Unknown error",
	ErrBadUserAgent:            "Invalid user agent string",
	ErrMissingCallback:         "Missing callback",
	ErrInvalidIndata:           "Invalid indata",
	ErrIndexOutOfRange:         "Index out of range",
	ErrUserNeedsPremium:        "A premium account is required",
	ErrOtherTransient:          "Transient error",
	ErrIsLoading:               "Resource not loaded yet",
	ErrNoStreamAvailable:       "Could not find any suitable stream",
	ErrPermissionDenied:        "Permission denied",
	ErrInboxIsFull:             "Inbox is full",
	ErrNoCache:                 "No cache",
	ErrNoSuchUser:              "No such user",
	ErrNoCredentials:           "No credentials are stored",
	ErrNetworkDisabled:         "Network disabled",
	ErrInvalidDeviceID:         "Invalid device ID",
	ErrApplicationBanned:       "Application banned",
	ErrOfflineTooManyTracks:    "Too many tracks for offline",
	ErrOfflineDiskCache:        "Offline disk cache error",
	ErrOfflineExpired:          "Offline key has expired",
	ErrOfflineNotAllowed:       "Account not allowed to play offline",
	ErrSystemFailure:           "System failure",
}

func (e Error) Error() string {
	if msg, ok := messages[e]; ok {
		return msg
	}
	return "Unknown error"
}

// Code extracts the SDK status from err, or ErrOtherPermanent if err
// did not come from the SDK. A nil err is OK.
func Code(err error) Error {
	if err == nil {
		return OK
	}
	var e Error
	if errors.As(err, &e) {
		return e
	}
	return ErrOtherPermanent
}
