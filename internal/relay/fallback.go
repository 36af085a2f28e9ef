package relay

// capabilityFallback is served when no OpenAI API key is configured. A
// deterministic overview of the assistant's domain competence plus how to
// enable full capability; configuration absence is a supported mode, not an
// error.
const capabilityFallback = `Stackie AI - South Africa's Premier HR Expert

I'm your comprehensive South African HR specialist with deep expertise in:

Core labour legislation:
- Labour Relations Act (LRA) - Act 66 of 1995: strike procedures (Section 64), CCMA dispute resolution, unfair dismissal and disciplinary procedures, trade union recognition
- Basic Conditions of Employment Act (BCEA): working time and overtime calculations, annual/sick/family responsibility leave, notice periods and severance pay, minimum wage compliance
- Employment Equity Act (EEA) - Act 55 of 1998: affirmative action implementation, EE plan development, annual EE reporting (due 1 October)

Employment relations:
- NEDLAC tripartite negotiation processes
- Bargaining councils and sectoral collective agreements
- Trade union relations (COSATU, FEDUSA, NACTU)

Strategic HR planning:
- Workforce planning and succession management
- Performance management systems and KPI frameworks
- Organizational restructuring and change management

Compliance and risk management:
- POPIA implementation for employee data
- Occupational Health and Safety Act requirements
- Skills Development Act and SETA obligations, UIF and SDL management
- Employment contract templates, HR policy manuals, disciplinary and grievance frameworks

Dispute resolution:
- CCMA conciliation and arbitration processes
- Retrenchment consultation procedures (Section 189 LRA)
- Labour Court jurisdiction and review of CCMA awards

Legal disclaimer: this information provides general guidance on South African labour law and HR practices. For specific legal interpretation or complex cases, consult qualified legal counsel or registered HR practitioners.

To unlock my full AI capabilities with real-time analysis, case law research, and personalized document generation, please configure the OpenAI API key.

What specific SA HR challenge can I help you navigate today?`

// knowledgeFallback is served when the OpenAI call fails. Distinct wording
// from capabilityFallback: it acknowledges a transient issue and keeps the
// quick-reference content usable.
const knowledgeFallback = `Stackie AI - Comprehensive SA HR Knowledge Available

I'm experiencing a brief connection issue, but my extensive South African HR expertise remains available.

Core labour law quick reference:

LRA (Labour Relations Act) essentials:
- Section 64: constitutional right to strike with procedural requirements
- Section 189: retrenchment consultation procedures (60+ days for large-scale)
- CCMA jurisdiction: unfair dismissal, unfair labour practice, collective disputes

BCEA (Basic Conditions of Employment Act) key provisions:
- Working time: 45 hours/week maximum (9 hours/day)
- Overtime: 1.5x normal wage rate for hours exceeding normal working time
- Annual leave: 21 consecutive days minimum per annual cycle
- Sick leave: 30 days per 3-year cycle (6 weeks paid)
- Notice periods: 1 week (6 months service), 2 weeks (6-12 months), 4 weeks (1+ years)

EEA (Employment Equity Act) compliance:
- Annual EE reports due 1 October (designated employers)
- Affirmative action for designated groups
- Employment equity plans with numerical goals and timetables

Disciplinary procedures (LRA compliant):
1. Investigation and fact-finding
2. Formal charges with adequate notice (48-72 hours)
3. Disciplinary hearing with right to representation
4. Decision based on evidence and consistency
5. Appeal process availability

Dispute resolution pathways:
- Internal: grievance procedures, workplace forums (100+ employees), joint problem-solving
- CCMA: conciliation within 30 days, arbitration if unresolved
- Bargaining councils: industry-specific dispute resolution
- Labour Court: complex legal matters and urgent applications

What specific SA HR challenge would you like me to address? Please try again shortly for full AI capabilities.`
