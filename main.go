// Copyright 2026 TeamTrait Ltd.
// SPDX-License-Identifier: AGPL-3.0

package main

import "github.com/teamtrait/identity-service/cmd"

func main() {
	cmd.Execute()
}
