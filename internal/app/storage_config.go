package app

import "github.com/mysite19/mysite/internal/storage"

// StorageSettings converts the storage section into the storage package representation.
func (c StorageConfig) StorageSettings() storage.Config {
	return storage.Config{
		Driver:    c.Driver,
		LocalRoot: c.Local.Root,
		BaseURL:   c.Local.BaseURL,
		S3: storage.S3Config{
			Endpoint:          c.S3.Endpoint,
			Region:            c.S3.Region,
			Bucket:            c.S3.Bucket,
			AccessKey:         c.S3.AccessKey,
			SecretKey:         c.S3.SecretKey,
			UseSSL:            c.S3.UseSSL,
			UsePathStyle:      c.S3.UsePathStyle,
			PresignExpiration: c.S3.PresignExpiration,
		},
	}
}
