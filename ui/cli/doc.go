// Copyright (c) 2026 Panelctl Team
// Panelctl - proxy panel lifecycle manager
// This source code is licensed under the MIT license found in the LICENSE file.
//
// Package cli implements the panelctl command line using Cobra. It loads the
// settings, builds the operation context and delegates every verb to the
// `core` facades. Business logic stays out of this package.
package cli
