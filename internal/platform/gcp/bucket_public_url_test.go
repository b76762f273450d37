package gcp

import (
	"strings"
	"testing"
)

func TestResolvePublicBaseURLGCSDefault(t *testing.T) {
	t.Setenv("OBJECT_STORAGE_PUBLIC_BASE_URL", "")

	baseURL, err := resolvePublicBaseURL(ObjectStorageConfig{Mode: ObjectStorageModeGCS})
	if err != nil {
		t.Fatalf("resolvePublicBaseURL: %v", err)
	}
	if baseURL != "" {
		t.Fatalf("baseURL: want empty got=%q", baseURL)
	}
}

func TestResolvePublicBaseURLEmulatorFallback(t *testing.T) {
	t.Setenv("OBJECT_STORAGE_PUBLIC_BASE_URL", "")

	baseURL, err := resolvePublicBaseURL(ObjectStorageConfig{
		Mode:         ObjectStorageModeGCSEmulator,
		EmulatorHost: "http://fake-gcs:4443",
	})
	if err != nil {
		t.Fatalf("resolvePublicBaseURL: %v", err)
	}
	if baseURL != "http://fake-gcs:4443" {
		t.Fatalf("baseURL: want=%q got=%q", "http://fake-gcs:4443", baseURL)
	}
}

func TestResolvePublicBaseURLEnvOverride(t *testing.T) {
	t.Setenv("OBJECT_STORAGE_PUBLIC_BASE_URL", "http://localhost:4443/")

	baseURL, err := resolvePublicBaseURL(ObjectStorageConfig{
		Mode:         ObjectStorageModeGCSEmulator,
		EmulatorHost: "http://fake-gcs:4443",
	})
	if err != nil {
		t.Fatalf("resolvePublicBaseURL: %v", err)
	}
	if baseURL != "http://localhost:4443" {
		t.Fatalf("baseURL: want=%q got=%q", "http://localhost:4443", baseURL)
	}
}

func TestResolvePublicBaseURLInvalidEnv(t *testing.T) {
	t.Setenv("OBJECT_STORAGE_PUBLIC_BASE_URL", "localhost:4443")

	_, err := resolvePublicBaseURL(ObjectStorageConfig{
		Mode:         ObjectStorageModeGCSEmulator,
		EmulatorHost: "http://fake-gcs:4443",
	})
	if err == nil {
		t.Fatalf("resolvePublicBaseURL: expected error, got nil")
	}
}

func TestGetPublicURLGCSDefault(t *testing.T) {
	bs := &bucketService{
		patternBucket: bucketConfig{name: "pattern-bucket"},
	}

	got := bs.GetPublicURL(BucketCategoryPattern, "pattern/abc/file.oxs")
	want := "https://storage.googleapis.com/pattern-bucket/pattern/abc/file.oxs"
	if got != want {
		t.Fatalf("GetPublicURL: want=%q got=%q", want, got)
	}
}

func TestGetPublicURLUsesCDNDomain(t *testing.T) {
	bs := &bucketService{
		thumbnailBucket: bucketConfig{
			name:      "thumbnail-bucket",
			cdnDomain: "cdn.example.com",
		},
	}

	got := bs.GetPublicURL(BucketCategoryThumbnail, "thumbnail/abc/1.png")
	want := "https://cdn.example.com/thumbnail/abc/1.png"
	if got != want {
		t.Fatalf("GetPublicURL: want=%q got=%q", want, got)
	}
}

func TestGetPublicURLUsesPublicBaseURL(t *testing.T) {
	bs := &bucketService{
		publicBaseURL: "http://localhost:4443",
		patternBucket: bucketConfig{
			name: "pattern-bucket",
		},
	}

	got := bs.GetPublicURL(BucketCategoryPattern, "/pattern/abc/file.oxs")
	want := "http://localhost:4443/pattern-bucket/pattern/abc/file.oxs"
	if got != want {
		t.Fatalf("GetPublicURL: want=%q got=%q", want, got)
	}
}

func TestGetPublicURLUsesEmulatorMediaEndpoint(t *testing.T) {
	bs := &bucketService{
		storageMode:   ObjectStorageModeGCSEmulator,
		publicBaseURL: "http://localhost:4443",
		thumbnailBucket: bucketConfig{
			name: "thumbnail-bucket",
		},
	}

	got := bs.GetPublicURL(BucketCategoryThumbnail, "thumbnail/abc/123.png")
	want := "http://localhost:4443/storage/v1/b/thumbnail-bucket/o/thumbnail%2Fabc%2F123.png?alt=media"
	if got != want {
		t.Fatalf("GetPublicURL: want=%q got=%q", want, got)
	}
}

func TestGetPublicURLUsesEmulatorHostWhenPublicBaseMissing(t *testing.T) {
	bs := &bucketService{
		storageMode:  ObjectStorageModeGCSEmulator,
		emulatorHost: "http://fake-gcs:4443",
		thumbnailBucket: bucketConfig{
			name: "thumbnail-bucket",
		},
	}

	got := bs.GetPublicURL(BucketCategoryThumbnail, "/thumbnail/abc/123.png")
	want := "http://fake-gcs:4443/storage/v1/b/thumbnail-bucket/o/thumbnail%2Fabc%2F123.png?alt=media"
	if got != want {
		t.Fatalf("GetPublicURL: want=%q got=%q", want, got)
	}
}

func TestEmulatorPublicURLSmokeRenderableAssets(t *testing.T) {
	bs := &bucketService{
		storageMode:   ObjectStorageModeGCSEmulator,
		publicBaseURL: "http://localhost:4443",
		patternBucket: bucketConfig{
			name: "pattern-bucket",
		},
		thumbnailBucket: bucketConfig{
			name: "thumbnail-bucket",
		},
	}

	cases := []struct {
		name       string
		category   BucketCategory
		key        string
		wantBucket string
		wantCT     string
	}{
		{
			name:       "thumbnail png",
			category:   BucketCategoryThumbnail,
			key:        "thumbnail/p/1.png",
			wantBucket: "thumbnail-bucket",
			wantCT:     "image/png",
		},
		{
			name:       "pattern oxs",
			category:   BucketCategoryPattern,
			key:        "pattern/p/file.oxs",
			wantBucket: "pattern-bucket",
			wantCT:     "application/xml",
		},
		{
			name:       "pattern json sidecar",
			category:   BucketCategoryPattern,
			key:        "pattern/p/meta.json",
			wantBucket: "pattern-bucket",
			wantCT:     "application/json",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			publicURL := bs.GetPublicURL(tc.category, tc.key)
			if !strings.HasPrefix(publicURL, "http://localhost:4443/storage/v1/b/"+tc.wantBucket+"/o/") {
				t.Fatalf("publicURL prefix mismatch for %s: %s", tc.name, publicURL)
			}
			if !strings.Contains(publicURL, "alt=media") {
				t.Fatalf("publicURL should include alt=media for object media endpoint: %s", publicURL)
			}
			if !strings.Contains(publicURL, strings.ReplaceAll(tc.key, "/", "%2F")) {
				t.Fatalf("publicURL should escape object key path: %s", publicURL)
			}
			if got := contentTypeForKey(tc.key); got != tc.wantCT {
				t.Fatalf("contentTypeForKey(%q): want=%q got=%q", tc.key, tc.wantCT, got)
			}
		})
	}
}
