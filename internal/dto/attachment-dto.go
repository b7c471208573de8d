package dto

// PresignUploadDTO — запрос на выдачу подписанной ссылки для загрузки.
// SensitivityLevel опционален; по умолчанию REGULAR.
type PresignUploadDTO struct {
	OriginalFilename string `json:"original_filename" validate:"required,max=255"`
	Mime             string `json:"mime" validate:"omitempty,max=255"`
	Size             int64  `json:"size" validate:"required,gt=0"`
	Checksum         string `json:"checksum" validate:"omitempty,max=128"`
	SensitivityLevel string `json:"sensitivity_level" validate:"omitempty,oneof=REGULAR CONFIDENTIAL RESTRICTED"`
}

type PresignUploadResponseDTO struct {
	AttachmentID uint64 `json:"attachment_id"`
	ObjectKey    string `json:"object_key"`
	UploadURL    string `json:"upload_url"`
	ExpiresIn    int64  `json:"expires_in"`
}

type PresignDownloadResponseDTO struct {
	AttachmentID uint64 `json:"attachment_id"`
	DownloadURL  string `json:"download_url"`
	ExpiresIn    int64  `json:"expires_in"`
}
