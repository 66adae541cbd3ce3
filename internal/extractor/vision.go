package extractor

import (
	"context"

	vision "cloud.google.com/go/vision/v2/apiv1"
	"cloud.google.com/go/vision/v2/apiv1/visionpb"
	"github.com/rotisserie/eris"
	"google.golang.org/api/option"
)

// VisionRecognizer sends page images to Google Cloud Vision document text
// detection.
type VisionRecognizer struct {
	client *vision.ImageAnnotatorClient
}

// NewVisionRecognizer creates a Vision client. With no credentials file the
// application default credentials are used.
func NewVisionRecognizer(ctx context.Context, credentialsFile string) (*VisionRecognizer, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	client, err := vision.NewImageAnnotatorClient(ctx, opts...)
	if err != nil {
		return nil, eris.Wrap(err, "failed to create vision client")
	}
	return &VisionRecognizer{client: client}, nil
}

func (v *VisionRecognizer) Recognize(ctx context.Context, image []byte) (string, error) {
	req := &visionpb.BatchAnnotateImagesRequest{
		Requests: []*visionpb.AnnotateImageRequest{
			{
				Image: &visionpb.Image{Content: image},
				Features: []*visionpb.Feature{
					{Type: visionpb.Feature_DOCUMENT_TEXT_DETECTION},
				},
			},
		},
	}

	resp, err := v.client.BatchAnnotateImages(ctx, req)
	if err != nil {
		return "", eris.Wrap(err, "vision API call failed")
	}
	if len(resp.Responses) == 0 {
		return "", eris.New("no response from vision API")
	}

	r := resp.Responses[0]
	if r.Error != nil {
		return "", eris.Errorf("vision API error: %s", r.Error.Message)
	}
	if r.FullTextAnnotation == nil {
		return "", nil
	}
	return r.FullTextAnnotation.Text, nil
}

func (v *VisionRecognizer) Close() error {
	return v.client.Close()
}
