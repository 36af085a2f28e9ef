package assist

// NotConfiguredReply is returned when the completion service is not
// configured. Byte-for-byte stable: clients and tests rely on the exact
// wording.
const NotConfiguredReply = `I'm Stackie, your South African HR expert. I can help with:

• Labour law compliance (BCEA, LRA, EEA)
• CCMA procedures and dispute resolution
• Employment contracts and policies
• Performance management systems
• HR strategy and transformation

To unlock my full AI capabilities with real-time analysis and personalized responses, please configure the assistant service.

How can I assist you with your HR needs today?`

// TransientIssueReply is returned when the completion service is configured
// but the call failed. Distinct wording from NotConfiguredReply: it
// acknowledges a transient issue rather than a missing setup.
const TransientIssueReply = `I'm experiencing a connection issue. Here's what I can help with offline:

• BCEA overtime calculations and working time regulations
• LRA disciplinary procedures and fair dismissal processes
• EEA compliance and employment equity planning
• CCMA conciliation and arbitration procedures
• Employment contract templates and policy development

Please try your question again or check your connection for full AI capabilities.`
