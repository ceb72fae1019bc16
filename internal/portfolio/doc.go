// Package portfolio defines the document model shared by the fetcher, the media
// synchronizer, the snapshot writer and the HTTP surface. The JSON tags are the
// wire format the browser client reads from profileData.json.
package portfolio
