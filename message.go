package main

const (
	CodeInvalidRequest   = "invalid_request"
	CodeUploadTooLarge   = "upload_too_large"
	CodeInvalidImage     = "invalid_image"
	CodeModelUnavailable = "model_unavailable"
	CodeInferenceError   = "inference_error"
	CodeInternal         = "internal_error"

	MsgProcessingFailed = "Error processing image"
	MsgUploadTooLarge   = "Image exceeds the %d MB upload limit"
	MsgNoUpload         = "No image was uploaded. Send the frame as a multipart \"file\" field, a JSON body with a base64 \"image\", or the raw image bytes."
)
