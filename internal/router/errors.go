// SPDX-License-Identifier: AGPL-3.0-or-later
// connect-core - control plane for a horizontally scaled WebRTC conferencing service
// Copyright (C) 2026 Cynayd

package router

import "errors"

var errUnexpectedArraySize = errors.New("router: unexpected msgpack array size for Entry")
