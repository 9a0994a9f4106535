// Package repository holds what the job store backends share.
package repository

import "errors"

var ErrNotFound = errors.New("not found")
