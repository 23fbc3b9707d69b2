package main

import (
	"context"
	"fmt"
	"os"

	"golang.org/x/oauth2"

	"github.com/taskmesh/tasksync/pkg/provider"
	"github.com/taskmesh/tasksync/pkg/provider/googletasks"
	"github.com/taskmesh/tasksync/pkg/provider/mstodo"
	"github.com/taskmesh/tasksync/pkg/types"
)

// buildProviders wires the two reference adapters from already-resolved
// bearer tokens in the environment. Token acquisition and refresh happen
// upstream of this process — this only wraps a static token in an
// oauth2.TokenSource so both adapters get a bearer-authed *http.Client.
//
// providers[0] is always google, providers[1] is always mstodo: order
// matters for a-to-b-only and mirror modes (provider[0] is the source).
func buildProviders(ctx context.Context, googleListID, mstodoListID string) ([]provider.Named, error) {
	googleToken := os.Getenv("TASKSYNC_GOOGLE_TOKEN")
	mstodoToken := os.Getenv("TASKSYNC_MSTODO_TOKEN")
	if googleToken == "" {
		return nil, fmt.Errorf("TASKSYNC_GOOGLE_TOKEN is not set")
	}
	if mstodoToken == "" {
		return nil, fmt.Errorf("TASKSYNC_MSTODO_TOKEN is not set")
	}

	googleClient := oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: googleToken}))
	mstodoClient := oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: mstodoToken}))

	return []provider.Named{
		{Name: types.ProviderName("google"), Provider: googletasks.New(googleClient, googleListID)},
		{Name: types.ProviderName("mstodo"), Provider: mstodo.New(mstodoClient, mstodoListID)},
	}, nil
}
