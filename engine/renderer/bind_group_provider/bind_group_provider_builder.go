package bind_group_provider

// BindGroupProviderOption configures a BindGroupProvider before any GPU resources exist.
type BindGroupProviderOption func(*bindGroupProvider)

// WithIndexCount records how many indices a mesh provider draws. The count is known from the mesh data before upload,
// so draw lists can be sized without waiting for the index buffer.
//
// Parameters:
//   - count: the number of indices, clamped to at least zero
//
// Returns:
//   - BindGroupProviderOption: a function that sets the index count
func WithIndexCount(count int) BindGroupProviderOption {
	return func(p *bindGroupProvider) {
		p.indexCount = max(count, 0)
	}
}
