// SPDX-License-Identifier: AGPL-3.0-or-later
// connect-core - control plane for a horizontally scaled WebRTC conferencing service
// Copyright (C) 2026 Cynayd

package routing

import "errors"

var errUnexpectedStatusSize = errors.New("routing: unexpected msgpack array size for Status")
