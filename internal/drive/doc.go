// Package drive lists Google Drive folders and resolves file metadata through
// the Drive v3 REST API.
//
// Folder references may be bare IDs or share links:
//
//	id, err := drive.FolderIDFromURL("https://drive.google.com/drive/folders/1AbC?usp=sharing")
//	c := drive.NewClient(httpClient, holder, drive.Options{})
//	files, err := c.ListFolder(ctx, id)
//
// Listings follow nextPageToken until exhausted and skip sub-folders. The
// returned files carry what the downloader needs; their content is fetched
// from ContentURL.
package drive
