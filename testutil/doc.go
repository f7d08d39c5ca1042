/*
Package testutil provides testing utilities for the payment-request engine.

It contains generators for configs, keypairs and ciphertext handles, plus a
TestEngine fixture bundling an engine with the keys needed to drive it:

	fixture, err := testutil.NewTestEngine(nil,
	    testutil.WithContextID("my-test"),
	    testutil.WithCooldown(50*time.Millisecond),
	)

	handle, _ := testutil.GenerateTestHandle()
	cleartext := testutil.EncodeClearValue(125_000)

This package is intended for testing purposes only and should not be used in
production code.
*/
package testutil
