// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package flow drives the two-step phone sign-in: phone entry, then code
// entry.
//
// A Controller holds the input buffers, the pending challenge handle and a
// busy flag. The current step is never stored; it is derived from whether a
// handle is pending (see StepFor). All network work is delegated to an
// identity.Provider; the controller only validates input locally first and
// keeps its own state consistent with the results.
//
//	ctl := flow.New(provider, surface, normalizer)
//	ctl.Phone().Set("9876543210")
//	if _, err := ctl.SubmitPhone(ctx); err != nil {
//	    notice := flow.Describe(err)
//	    ...
//	}
//	ctl.Code().Set("123456")
//	user, err := ctl.SubmitCode(ctx)
//
// A successful verification is announced on the provider's session stream;
// routing away from the sign-in screen is the session guard's job.
package flow
