package templates

import "os"

const configTemplate = `# CropGuard model server configuration.
# Every key can also be set with a CROPGUARD_ environment variable,
# e.g. CROPGUARD_MODEL_SOURCE or CROPGUARD_IMAGE_NORMALIZATION.

host: 0.0.0.0
port: 8000
environment: prod
service_name: CropGuard AI Model Server
max_upload_mb: 10
# public_dir: ~/.cropguard/public

model:
  # local path, file:<path>, s3://bucket/key or https://...
  source: ~/.cropguard/models/plant_disease_mobilenetv2.onnx
  # blake3 hex digest of the artifact, checked at startup when set
  checksum: ""
  # path to libonnxruntime; empty uses the platform default
  runtime_library: ""
  softmax: false

labels:
  # plantvillage-15 or plantvillage-15-crop
  preset: plantvillage-15
  # file: ~/.cropguard/labels.yaml

image:
  size: 224
  # unit (x/255) or symmetric (x/127.5 - 1); must match the exported model
  normalization: unit
  resample: bicubic
  auto_orient: false
  # uploads with more pixels than this are rejected before decoding
  max_pixels: 89478485

inference:
  workers: 4
  timeout: 30s

s3:
  region_name: auto
  endpoint_url: ""
`

const envTemplate = `# Secrets for the CropGuard model server.
CROPGUARD_S3_ACCESS_KEY=
CROPGUARD_S3_SECRET_KEY=
`

func GetConfigTemplate() string {
	return configTemplate
}

func GetEnvTemplate() string {
	return envTemplate
}

func WriteConfig(path string) error {
	return writeTemplate(path, GetConfigTemplate())
}

func WriteEnv(path string) error {
	return writeTemplate(path, GetEnvTemplate())
}

func writeTemplate(path, content string) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	_, err = file.WriteString(content)
	if err != nil {
		return err
	}

	return nil
}
