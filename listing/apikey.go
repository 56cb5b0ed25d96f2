// Copyright 2025 The Karobar Authors
// SPDX-License-Identifier: Apache-2.0

package listing

import (
	"context"
	"errors"
	"fmt"
	"log"

	apikeys "cloud.google.com/go/apikeys/apiv2"
	"cloud.google.com/go/apikeys/apiv2/apikeyspb"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/iterator"
)

// googleMapsKeyDisplayName matches the display name of the API key resource
// provisioned for this deployment.
const googleMapsKeyDisplayName = "Karobar Geocoding Key"

// GoogleAPIKeyFromADC retrieves the Google Maps geocoding key through
// Application Default Credentials, for deployments where the key is managed
// in Google Cloud instead of an environment variable.
func GoogleAPIKeyFromADC(ctx context.Context) (string, error) {
	// 1. Get Project ID from ADC
	creds, err := google.FindDefaultCredentials(ctx, "https://www.googleapis.com/auth/cloud-platform")
	if err != nil {
		return "", fmt.Errorf("finding default credentials: %w", err)
	}

	projectID := creds.ProjectID
	if projectID == "" {
		return "", errors.New("no project ID in default credentials")
	}

	// 2. Create API Keys client
	client, err := apikeys.NewClient(ctx)
	if err != nil {
		return "", fmt.Errorf("creating apikeys client: %w", err)
	}
	defer client.Close()

	// 3. List keys to find the one with the expected display name
	req := &apikeyspb.ListKeysRequest{
		Parent: fmt.Sprintf("projects/%s/locations/global", projectID),
	}

	it := client.ListKeys(ctx, req)

	for {
		key, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}

		if err != nil {
			return "", fmt.Errorf("listing keys: %w", err)
		}

		if key.DisplayName == googleMapsKeyDisplayName {
			// ListKeys and GetKey redact the KeyString; GetKeyString
			// retrieves the secret.
			log.Printf("Found key resource '%s', retrieving secret...", key.Name)

			resp, err := client.GetKeyString(ctx, &apikeyspb.GetKeyStringRequest{
				Name: key.Name,
			})
			if err != nil {
				return "", fmt.Errorf("getting key string: %w", err)
			}

			if resp.KeyString == "" {
				return "", fmt.Errorf("key '%s' found but KeyString is empty", googleMapsKeyDisplayName)
			}

			return resp.KeyString, nil
		}
	}

	return "", fmt.Errorf("key with display name '%s' not found in project %s", googleMapsKeyDisplayName, projectID)
}
