// Labboard - Research Lab Collaboration Platform
// Copyright 2026 Labboard contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/labboard/labboard

package database

import "errors"

// ErrNotFound reports that a row targeted by id does not exist.
var ErrNotFound = errors.New("not found")
